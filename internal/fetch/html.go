package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"websift/internal/util"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractHTML returns the text of every h1 as heading candidates and the
// visible document text, minus scripts, styles and the heading text itself,
// as the body.
func ExtractHTML(b []byte) (Page, error) {
	doc, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return Page{}, fmt.Errorf("%w: parse html: %v", util.ErrFetchFailed, err)
	}

	var headings []string
	var walkHeadings func(*html.Node)
	walkHeadings = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.H1 {
			if t := strippedText(n); t != "" {
				headings = append(headings, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkHeadings(c)
		}
	}
	walkHeadings(doc)

	var sb strings.Builder
	var walkText func(*html.Node)
	walkText = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkText(c)
		}
	}
	walkText(doc)

	text := sb.String()
	for _, h := range headings {
		text = strings.ReplaceAll(text, h, "")
	}
	return Page{Headings: headings, Body: util.SanitizeText(normalizeLines(text))}, nil
}

// strippedText joins the trimmed text pieces under n.
func strippedText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// normalizeLines trims every line, breaks lines further on double spaces and
// drops the empty pieces.
func normalizeLines(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		for _, phrase := range strings.Split(line, "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				out = append(out, phrase)
			}
		}
	}
	return strings.Join(out, "\n")
}

// Package fetch downloads a URL and extracts its heading candidates and body
// text. HTML and PDF responses are supported.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"websift/internal/util"

	"github.com/ledongthuc/pdf"
)

// MaxBodyBytes bounds how much of a response is read.
const MaxBodyBytes = 20 << 20

type Page struct {
	Headings []string
	Body     string
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{client: client, userAgent: "websift/1.0 (+https://github.com/websift)"}
}

// Fetch retrieves url. Transport errors and non-2xx statuses wrap
// util.ErrFetchFailed; a document without text yields util.ErrNoExtractableText.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("%w: build request: %v", util.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", util.ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("%w: %s returned %d", util.ErrFetchFailed, url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return Page{}, fmt.Errorf("%w: read body: %v", util.ErrFetchFailed, err)
	}

	var page Page
	if isPDF(resp.Header.Get("Content-Type"), url) {
		text, err := PDFText(body)
		if err != nil {
			return Page{}, err
		}
		page = Page{Body: text}
	} else {
		page, err = ExtractHTML(body)
		if err != nil {
			return Page{}, err
		}
	}
	if page.Body == "" {
		return Page{}, fmt.Errorf("%s: %w", url, util.ErrNoExtractableText)
	}
	return page, nil
}

func isPDF(contentType, url string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(url), ".pdf")
}

func PDFText(b []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", util.ErrFetchFailed, err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extract pdf text: %v", util.ErrFetchFailed, err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("%w: read extracted text: %v", util.ErrFetchFailed, err)
	}
	return util.SanitizeText(normalizeLines(buf.String())), nil
}

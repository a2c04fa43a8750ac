package activities

// Page bodies travel between activities as blob keys; a body can exceed the
// workflow payload limit.

type FetchPageInput struct {
	URL string `json:"url"`
}

type FetchPageOutput struct {
	Headings []string `json:"headings"`
	BodyKey  string   `json:"body_key"`
}

type SummarizePageInput struct {
	URL      string   `json:"url"`
	Headings []string `json:"headings"`
	BodyKey  string   `json:"body_key"`
}

type SummarizePageOutput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type EmbedAndStoreInput struct {
	URL         string `json:"url"`
	UserID      string `json:"user_id"`
	BodyKey     string `json:"body_key"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type EmbedAndStoreOutput struct {
	PageID string `json:"page_id"`
	Chunks int    `json:"chunks"`
}

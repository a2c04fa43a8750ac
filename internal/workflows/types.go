package workflows

type IngestURLInput struct {
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

type IngestStatus struct {
	URL         string            `json:"url"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailReason  string            `json:"fail_reason,omitempty"`
	PageID      string            `json:"page_id,omitempty"`
	Chunks      int               `json:"chunks,omitempty"`
	Steps       map[string]string `json:"steps"`
}

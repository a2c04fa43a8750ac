package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.FetchPageActivity)
	w.RegisterActivity(a.SummarizePageActivity)
	w.RegisterActivity(a.EmbedAndStoreActivity)
}

package domain

import "strings"

// MaxFeedbackLength bounds a feedback message, in characters.
const MaxFeedbackLength = 2000

// Feedback is a message a staff member left about a dashboard page.
type Feedback struct {
	Message      string `json:"message"`
	PageOfOrigin string `json:"page_of_origin"`
}

// PageView reports that a dashboard page was opened.
type PageView struct {
	Page string `json:"page"`
}

// PageOfOrigin names the page a feedback message came from: its path with
// every slash removed, or "homepage" for the root.
func PageOfOrigin(path string) string {
	if name := strings.ReplaceAll(path, "/", ""); name != "" {
		return name
	}
	return "homepage"
}

package adapter

import "github.com/zen-systems/secdesk/pkg/artifact"

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Total returns the total token count, deriving it from the parts
// when the provider did not report one.
func (u Usage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// Response wraps an adapter output and optional usage data.
type Response struct {
	Artifact *artifact.Artifact
	Usage    *Usage
}

// Tokens returns the total tokens consumed by the response, or zero
// when the provider reported no usage.
func (r *Response) Tokens() int {
	if r == nil || r.Usage == nil {
		return 0
	}
	return r.Usage.Total()
}

// Text returns the response content, or empty when absent.
func (r *Response) Text() string {
	if r == nil || r.Artifact == nil {
		return ""
	}
	return r.Artifact.Content
}

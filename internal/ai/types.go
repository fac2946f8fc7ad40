package ai

import "strings"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is the provider-neutral generation request. Providers map
// the sampling fields to their own parameter names and ignore what they lack.
type GenerateRequest struct {
	Model             string    `json:"model"`
	Messages          []Message `json:"messages"`
	MaxTokens         int       `json:"max_tokens,omitempty"`
	Temperature       float64   `json:"temperature,omitempty"`
	TopP              float64   `json:"top_p,omitempty"`
	RepetitionPenalty float64   `json:"repetition_penalty,omitempty"`
}

// Prompt flattens the messages into a single text input for completion-style
// endpoints. A lone user message is sent as is.
func (r GenerateRequest) Prompt() string {
	if len(r.Messages) == 1 {
		return r.Messages[0].Content
	}
	var b strings.Builder
	for i, m := range r.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if m.Role != "" && m.Role != "user" {
			b.WriteString(strings.ToUpper(m.Role[:1]) + m.Role[1:] + ": ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
}

// Text returns the first choice's content, or "" when there is none.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

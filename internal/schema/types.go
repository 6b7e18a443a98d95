// Package schema holds the wire shapes exchanged with OpenAI-style callers and
// with the NVIDIA NIM upstream.
package schema

import "encoding/json"

type ChatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ChatRequest is the inbound /v1/chat/completions body. Only the fields the
// proxy forwards are decoded; everything else is ignored.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// ChatTemplateKwargs asks NIM to render the chat template in thinking mode so
// the model populates reasoning_content.
type ChatTemplateKwargs struct {
	Thinking bool `json:"thinking"`
}

type ExtraBody struct {
	ChatTemplateKwargs ChatTemplateKwargs `json:"chat_template_kwargs"`
}

// UpstreamRequest is the body sent to NIM. MaxTokens has no omitempty: an
// absent limit is sent as an explicit null.
type UpstreamRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens"`
	ExtraBody   *ExtraBody    `json:"extra_body,omitempty"`
	Stream      bool          `json:"stream"`
}

type UpstreamMessage struct {
	Role             string  `json:"role"`
	Content          *string `json:"content"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

type UpstreamChoice struct {
	Index        int             `json:"index"`
	Message      UpstreamMessage `json:"message"`
	FinishReason *string         `json:"finish_reason"`
}

// UpstreamReply is a non-streaming NIM chat completion.
type UpstreamReply struct {
	ID      string           `json:"id"`
	Object  string           `json:"object"`
	Created int64            `json:"created"`
	Model   string           `json:"model"`
	Choices []UpstreamChoice `json:"choices"`
	Usage   *Usage           `json:"usage,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionChoice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason *string         `json:"finish_reason"`
}

type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   Usage                  `json:"usage"`
}

// ErrorBody is the payload of the error envelope returned to callers.
// Details carries the upstream error body when there is one and is null
// otherwise.
type ErrorBody struct {
	Message string          `json:"message"`
	Type    string          `json:"type"`
	Code    int             `json:"code"`
	Details json.RawMessage `json:"details"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

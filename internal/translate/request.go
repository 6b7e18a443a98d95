// Package translate converts between the OpenAI chat-completions shape and
// the NVIDIA NIM shape, including folding NIM's reasoning channel into the
// visible content.
package translate

import "github.com/traian1744/openai-nim-proxy/internal/schema"

// DefaultTemperature is sent when the caller leaves temperature unset.
const DefaultTemperature = 0.9

// Request builds the NIM request for req targeting upstreamModel. An unset
// max_tokens is forwarded as null. The thinking hint is attached only when
// thinking is enabled and is otherwise absent from the body.
func Request(req schema.ChatRequest, upstreamModel string, thinking bool) schema.UpstreamRequest {
	out := schema.UpstreamRequest{
		Model:       upstreamModel,
		Messages:    req.Messages,
		Temperature: DefaultTemperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if thinking {
		out.ExtraBody = &schema.ExtraBody{
			ChatTemplateKwargs: schema.ChatTemplateKwargs{Thinking: true},
		}
	}
	return out
}

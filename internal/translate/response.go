package translate

import (
	"time"

	"github.com/google/uuid"

	"github.com/traian1744/openai-nim-proxy/internal/schema"
)

// Overridable in tests.
var (
	newCompletionID = func() string { return "chatcmpl-" + uuid.NewString() }
	now             = time.Now
)

// Response shapes a complete NIM reply into the OpenAI envelope. The model is
// reported as the name the caller asked for. When showReasoning is set, each
// choice's reasoning is prepended to its content as a closed <think> block.
func Response(reply *schema.UpstreamReply, requestedModel string, showReasoning bool) schema.ChatCompletionResponse {
	resp := schema.ChatCompletionResponse{
		ID:      newCompletionID(),
		Object:  "chat.completion",
		Created: now().Unix(),
		Model:   requestedModel,
		Choices: make([]schema.ChatCompletionChoice, 0, len(reply.Choices)),
	}
	if reply.Usage != nil {
		resp.Usage = *reply.Usage
	}

	for _, choice := range reply.Choices {
		content := ""
		if choice.Message.Content != nil {
			content = *choice.Message.Content
		}
		if showReasoning && choice.Message.ReasoningContent != nil && *choice.Message.ReasoningContent != "" {
			content = mergeMessage(*choice.Message.ReasoningContent, content)
		}
		resp.Choices = append(resp.Choices, schema.ChatCompletionChoice{
			Index: choice.Index,
			Message: schema.ResponseMessage{
				Role:    choice.Message.Role,
				Content: content,
			},
			FinishReason: choice.FinishReason,
		})
	}
	return resp
}

func mergeMessage(reasoning, content string) string {
	return ThinkOpen + reasoning + "\n" + ThinkClose + content
}

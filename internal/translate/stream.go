package translate

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/traian1744/openai-nim-proxy/internal/sse"
)

const closingChunkTemplate = `{"id":"","object":"chat.completion.chunk","created":0,"model":"","choices":[{"index":0,"delta":{"content":""},"finish_reason":null}]}`

// StreamRewriter carries the reasoning state of one streaming response and
// turns upstream lines into the bytes written to the caller. It is not safe
// for concurrent use; each call owns its own rewriter.
type StreamRewriter struct {
	showReasoning bool
	closeOnEnd    bool

	open     bool
	doneSeen bool

	// identity of the last rewritten chunk, reused for a synthetic closing chunk
	lastID      string
	lastModel   string
	lastCreated int64
}

// NewStreamRewriter creates a rewriter for a fresh stream. With closeOnEnd set,
// a reasoning block still open when the stream ends is closed by an extra
// chunk; otherwise it is left open, matching NIM passthrough behavior.
func NewStreamRewriter(showReasoning, closeOnEnd bool) *StreamRewriter {
	return &StreamRewriter{
		showReasoning: showReasoning,
		closeOnEnd:    closeOnEnd,
	}
}

// ReasoningOpen reports whether a <think> block is currently open.
func (s *StreamRewriter) ReasoningOpen() bool {
	return s.open
}

// Rewrite processes one reassembled line. Event frames come back terminated
// by a blank line; other field lines keep a single newline. Empty separator
// lines produce no output because every emitted event is already terminated.
func (s *StreamRewriter) Rewrite(line string) ([]byte, FrameOutcome) {
	if line == "" {
		return nil, FramePassthrough
	}

	res := MergeFrame(line, s.open, s.showReasoning)
	s.open = res.Open

	switch res.Outcome {
	case FramePassthrough:
		return []byte(res.Frame + "\n"), res.Outcome
	case FrameSentinel:
		s.doneSeen = true
		var out []byte
		if s.closeOnEnd && s.open {
			out = append(out, s.closingFrame()...)
		}
		out = append(out, res.Frame+"\n\n"...)
		return out, res.Outcome
	case FrameRewritten:
		s.remember(res.Frame)
	}
	return []byte(res.Frame + "\n\n"), res.Outcome
}

// Finish returns anything still owed to the caller once the upstream body is
// exhausted. It is empty unless closeOnEnd is set, a block is open and no
// sentinel arrived to close it.
func (s *StreamRewriter) Finish() []byte {
	if !s.closeOnEnd || !s.open || s.doneSeen {
		return nil
	}
	return s.closingFrame()
}

func (s *StreamRewriter) remember(frame string) {
	payload := strings.TrimPrefix(frame, sse.DataPrefix)
	ident := gjson.GetMany(payload, "id", "model", "created")
	if ident[0].Exists() {
		s.lastID = ident[0].String()
	}
	if ident[1].Exists() {
		s.lastModel = ident[1].String()
	}
	if ident[2].Exists() {
		s.lastCreated = ident[2].Int()
	}
}

func (s *StreamRewriter) closingFrame() []byte {
	s.open = false
	chunk := closingChunkTemplate
	chunk, _ = sjson.Set(chunk, "id", s.lastID)
	chunk, _ = sjson.Set(chunk, "model", s.lastModel)
	chunk, _ = sjson.Set(chunk, "created", s.lastCreated)
	chunk, _ = sjson.SetRaw(chunk, deltaContentPath, jsonString(ThinkClose))
	return []byte(sse.DataPrefix + chunk + "\n\n")
}

package translate

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/traian1744/openai-nim-proxy/internal/sse"
)

// ThinkOpen starts a reasoning block. ThinkClose ends a streamed block and
// separates it from the answer that follows.
const (
	ThinkOpen  = "<think>\n"
	ThinkClose = "</think>\n\n"
)

const (
	deltaPath          = "choices.0.delta"
	deltaContentPath   = deltaPath + ".content"
	deltaReasoningPath = deltaPath + ".reasoning_content"
)

// FrameOutcome records which path MergeFrame took for a line.
type FrameOutcome int

const (
	// FrameRewritten is a parsed data frame, re-serialized after merging.
	FrameRewritten FrameOutcome = iota
	// FrameSentinel is the end-of-stream marker, passed through unchanged.
	FrameSentinel
	// FrameMalformed is a data line whose payload is not JSON. It is passed
	// through byte for byte.
	FrameMalformed
	// FramePassthrough is any line that does not carry event data.
	FramePassthrough
)

func (o FrameOutcome) String() string {
	switch o {
	case FrameRewritten:
		return "rewritten"
	case FrameSentinel:
		return "sentinel"
	case FrameMalformed:
		return "malformed"
	case FramePassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// MergeResult is the rewritten frame and the reasoning state to carry into
// the next frame of the same stream.
type MergeResult struct {
	Frame   string
	Open    bool
	Outcome FrameOutcome
}

// MergeFrame rewrites one event line so the upstream reasoning channel is
// folded into delta.content. open reports whether a <think> block was left
// open by an earlier frame of the same stream.
//
// With showReasoning off, reasoning is dropped and content is always set, to
// "" when the frame has none. In both modes reasoning_content never reaches
// the caller.
func MergeFrame(line string, open, showReasoning bool) MergeResult {
	payload, ok := strings.CutPrefix(line, sse.DataPrefix)
	if !ok {
		return MergeResult{Frame: line, Open: open, Outcome: FramePassthrough}
	}
	if strings.TrimSpace(payload) == sse.Done {
		return MergeResult{Frame: line, Open: open, Outcome: FrameSentinel}
	}
	if !gjson.Valid(payload) {
		return MergeResult{Frame: line, Open: open, Outcome: FrameMalformed}
	}

	delta := gjson.Get(payload, deltaPath)
	if !delta.IsObject() {
		return MergeResult{Frame: line, Open: open, Outcome: FrameRewritten}
	}
	reasoning := delta.Get("reasoning_content").String()
	content := delta.Get("content").String()

	var (
		text    string
		setText bool
	)
	if showReasoning {
		text, open = mergeDelta(reasoning, content, open)
		setText = text != ""
	} else {
		text, setText = content, true
	}

	out := payload
	var err error
	if setText {
		if out, err = sjson.SetRaw(out, deltaContentPath, jsonString(text)); err != nil {
			return MergeResult{Frame: line, Open: open, Outcome: FrameMalformed}
		}
	}
	if delta.Get("reasoning_content").Exists() {
		if out, err = sjson.Delete(out, deltaReasoningPath); err != nil {
			return MergeResult{Frame: line, Open: open, Outcome: FrameMalformed}
		}
	}
	return MergeResult{Frame: sse.DataPrefix + out, Open: open, Outcome: FrameRewritten}
}

// mergeDelta splices one delta's reasoning and content into a single text.
// The first reasoning piece opens a block; the first content piece after it
// closes the block.
func mergeDelta(reasoning, content string, open bool) (string, bool) {
	var b strings.Builder
	if reasoning != "" {
		if !open {
			b.WriteString(ThinkOpen)
			open = true
		}
		b.WriteString(reasoning)
	}
	if content != "" {
		if open {
			b.WriteString(ThinkClose)
			open = false
		}
		b.WriteString(content)
	}
	return b.String(), open
}

// jsonString encodes s without HTML escaping so the markers reach the caller
// as literal angle brackets.
func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

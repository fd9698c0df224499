// Package directive classifies raw assistant replies into tool-call directives
// or final answers.
//
// A reply is a directive when it is exactly one JSON object of the form
//
//	{"tool_name": "<name>", "arguments": {...} | null}
//
// Replies that wrap such an object in prose are still recognized, but the
// result is flagged so that callers can report the format violation.
package directive

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ToolDirective is a request, embedded in an assistant reply, to invoke a tool.
type ToolDirective struct {
	ToolName string `json:"tool_name" jsonschema:"required,minLength=1,description=Name of the tool to invoke"`
	// Arguments holds the raw JSON value. Anything other than an object or
	// null is kept here and normalized by the tool router.
	Arguments json.RawMessage `json:"arguments,omitempty" jsonschema:"description=Tool arguments as a JSON object or null"`
}

// ArgumentsKind reports the JSON kind of the arguments: "object", "null" (also
// for missing arguments), "array", "string", "number" or "boolean".
func (d ToolDirective) ArgumentsKind() string {
	trimmed := bytes.TrimSpace(d.Arguments)
	if len(trimmed) == 0 {
		return "null"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 'n':
		return "null"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}

type Kind int

const (
	KindFinalAnswer Kind = iota
	KindToolCall
)

func (k Kind) String() string {
	switch k {
	case KindToolCall:
		return "tool-call"
	default:
		return "final-answer"
	}
}

// Tier says which parsing tier recognized a directive.
type Tier int

const (
	TierNone Tier = iota
	TierStrict
	TierHeuristic
)

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierHeuristic:
		return "heuristic"
	default:
		return "none"
	}
}

// Result is the classification of one reply.
type Result struct {
	Kind      Kind
	Directive *ToolDirective
	// Answer is the raw reply, verbatim, when Kind is KindFinalAnswer.
	Answer string
	Tier   Tier
}

// FormatViolation is true when the directive was only recovered by the
// heuristic tier, i.e. the model surrounded the JSON object with other text.
func (r Result) FormatViolation() bool {
	return r.Kind == KindToolCall && r.Tier == TierHeuristic
}

var ErrNotDirective = errors.New("not a tool directive")

// Parse classifies raw. It never fails: anything that is not a directive is a
// final answer carrying raw unchanged.
func Parse(raw string) Result {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		d, err := Decode(trimmed)
		if err != nil {
			return finalAnswer(raw)
		}
		return Result{Kind: KindToolCall, Directive: d, Tier: TierStrict}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return finalAnswer(raw)
	}
	d, err := Decode(raw[start : end+1])
	if err != nil {
		return finalAnswer(raw)
	}
	return Result{Kind: KindToolCall, Directive: d, Tier: TierHeuristic}
}

func finalAnswer(raw string) Result {
	return Result{Kind: KindFinalAnswer, Answer: raw, Tier: TierNone}
}

// Decode decodes s as exactly one ToolDirective object. Unknown keys, trailing
// values and a missing or empty tool_name are errors.
func Decode(s string) (*ToolDirective, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.DisallowUnknownFields()

	var d ToolDirective
	if err := dec.Decode(&d); err != nil {
		return nil, errors.Wrap(ErrNotDirective, err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Wrap(ErrNotDirective, "trailing data after directive object")
	}
	if strings.TrimSpace(d.ToolName) == "" {
		return nil, errors.Wrap(ErrNotDirective, "missing tool_name")
	}
	return &d, nil
}

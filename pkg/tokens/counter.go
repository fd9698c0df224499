// Package tokens counts prompt tokens with the tiktoken encodings used by
// OpenAI compatible models.
package tokens

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"

	"github.com/go-go-golems/trustagent/pkg/conversation"
)

// Chat messages carry a few tokens of framing on top of their content.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// DefaultEncoding returns the encoding name used for model.
func DefaultEncoding(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt-4"),
		strings.HasPrefix(model, "gpt-3.5-turbo"),
		strings.HasPrefix(model, "text-embedding-"):
		return string(tokenizer.Cl100kBase)
	case strings.HasPrefix(model, "text-davinci-002"), strings.HasPrefix(model, "text-davinci-003"):
		return string(tokenizer.P50kBase)
	case strings.HasPrefix(model, "davinci"), strings.HasPrefix(model, "curie"),
		strings.HasPrefix(model, "babbage"), strings.HasPrefix(model, "ada"):
		return string(tokenizer.R50kBase)
	default:
		// most current OpenAI compatible chat models are close enough to cl100k
		return string(tokenizer.Cl100kBase)
	}
}

type Counter struct {
	model    string
	encoding string
	codec    tokenizer.Codec
}

// NewCounter returns a counter for model. An empty encoding selects
// DefaultEncoding(model).
func NewCounter(model string, encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding(model)
	}
	codec, err := tokenizer.Get(tokenizer.Encoding(encoding))
	if err != nil {
		return nil, errors.Wrapf(err, "could not load encoding %s", encoding)
	}
	return &Counter{model: model, encoding: encoding, codec: codec}, nil
}

func (c *Counter) Model() string {
	return c.model
}

func (c *Counter) Encoding() string {
	return c.encoding
}

func (c *Counter) Count(text string) (int, error) {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, errors.Wrap(err, "could not encode text")
	}
	return len(ids), nil
}

// CountTurns estimates the prompt tokens of a chat request made of turns.
func (c *Counter) CountTurns(turns []conversation.Turn) (int, error) {
	total := tokensPerReply
	for _, t := range turns {
		n, err := c.Count(t.Content)
		if err != nil {
			return 0, err
		}
		r, err := c.Count(string(t.Role))
		if err != nil {
			return 0, err
		}
		total += tokensPerMessage + n + r
	}
	return total, nil
}

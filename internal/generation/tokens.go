package generation

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used for estimates.
const DefaultEncoding = "cl100k_base"

// TiktokenCounter counts tokens with a BPE encoding. Gemini uses its own
// tokenizer, so counts are estimates good enough for a pre-flight guard.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding. Loading may download the
// BPE ranks on first use.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{encoding: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (c *TiktokenCounter) CountTokens(text string) int {
	if c == nil || c.encoding == nil {
		return EstimateTokens(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// ApproxCounter estimates tokens from rune count. It is used when no
// encoding could be loaded.
type ApproxCounter struct{}

// CountTokens returns a rough estimate of the number of tokens in text.
func (ApproxCounter) CountTokens(text string) int {
	return EstimateTokens(text)
}

// EstimateTokens assumes about four characters per token.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return n/4 + 1
}

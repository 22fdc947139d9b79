package chunker

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// EstimateTokens is the length-based token proxy every budget decision is defined on:
// ceil(characters / 4), zero for empty text.
func EstimateTokens(text string) int {
	return estimateFromLength(utf8.RuneCountInString(text))
}

func estimateFromLength(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + 3) / 4
}

// TiktokenCounter reports exact BPE token counts. It is for diagnostics only; thresholds are
// tuned against EstimateTokens.
type TiktokenCounter struct {
	encoding  string
	tokenizer *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, falling back to cl100k_base.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	tokenizer, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		encoding = "cl100k_base"
		tokenizer, err = tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
		}
	}
	return &TiktokenCounter{encoding: encoding, tokenizer: tokenizer}, nil
}

// Count returns the number of BPE tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.tokenizer.Encode(text, nil, nil))
}

// Encoding returns the encoding name in use.
func (c *TiktokenCounter) Encoding() string {
	return c.encoding
}

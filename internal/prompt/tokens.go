package prompt

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter reports how many tokens a text costs against the prompt
// budget.
type TokenCounter interface {
	Count(text string) int
}

func NewTokenCounter() TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return heuristicCounter{}
	}
	return &tiktokenCounter{enc: enc}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// heuristicCounter approximates token counts when the tokenizer data is
// unavailable: words for ASCII text, one token per rune beyond ASCII.
type heuristicCounter struct{}

func (heuristicCounter) Count(text string) int {
	count := 0
	for _, r := range text {
		if r > 127 {
			count++
		}
	}
	return count + len(strings.Fields(text))
}

package chunker

import (
	"regexp"
	"strings"
)

// SentenceChunker splits cleaned document text into size-bounded segments
// without breaking sentences. The bound is soft: a single sentence longer
// than maxChars is still emitted whole.
type SentenceChunker struct {
	maxChars int
	splitter *regexp.Regexp
}

func New(maxChars int) *SentenceChunker {
	if maxChars <= 0 {
		maxChars = 1000
	}
	return &SentenceChunker{
		maxChars: maxChars,
		splitter: regexp.MustCompile(`[.!?]+\s+`),
	}
}

// Chunk greedily accumulates sentences into the current chunk while the
// combined sentence length stays under the bound; the overflowing
// sentence starts the next chunk. The joining space is not counted, so a
// finished chunk may reach maxChars exactly. Sentence order is
// preserved, nothing is dropped.
func (c *SentenceChunker) Chunk(text string) []string {
	sentences := c.split(text)
	if len(sentences) == 0 {
		return nil
	}
	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence) >= c.maxChars {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

func (c *SentenceChunker) split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	var sentences []string
	rest := trimmed
	for {
		loc := c.splitter.FindStringIndex(rest)
		if loc == nil {
			break
		}
		sentences = append(sentences, strings.TrimSpace(rest[:loc[1]]))
		rest = rest[loc[1]:]
	}
	if strings.TrimSpace(rest) != "" {
		sentences = append(sentences, strings.TrimSpace(rest))
	}
	return sentences
}

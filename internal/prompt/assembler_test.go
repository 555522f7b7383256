package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmorrel/helpqa/internal/model"
)

// fixedCounter charges a flat rate per chunk block and another for the
// preamble plus question, so budget math is exact in tests.
type fixedCounter struct {
	baseCost  int
	chunkCost int
}

func (c fixedCounter) Count(text string) int {
	if strings.HasPrefix(text, "Article URL:") {
		return c.chunkCost
	}
	return c.baseCost
}

func TestAssembleStopsBeforeBudget(t *testing.T) {
	a := NewAssembler(fixedCounter{baseCost: 500, chunkCost: 1000}, 2400)
	chunks := []model.RankedChunk{
		{URL: "https://kb.example.com/a", Text: "first", Distance: 0.1},
		{URL: "https://kb.example.com/b", Text: "second", Distance: 0.2},
		{URL: "https://kb.example.com/c", Text: "third", Distance: 0.3},
	}
	prompt := a.Assemble("how do breaks work", chunks)
	require.Contains(t, prompt, "Article URL: https://kb.example.com/a\nfirst")
	require.NotContains(t, prompt, "second")
	require.NotContains(t, prompt, "third")
}

func TestAssemblePacksClosestFirst(t *testing.T) {
	a := NewAssembler(fixedCounter{baseCost: 10, chunkCost: 10}, 4096)
	chunks := []model.RankedChunk{
		{URL: "https://kb.example.com/far", Text: "far text", Distance: 9},
		{URL: "https://kb.example.com/near", Text: "near text", Distance: 1},
	}
	prompt := a.Assemble("q", chunks)
	near := strings.Index(prompt, "near text")
	far := strings.Index(prompt, "far text")
	require.Greater(t, near, -1)
	require.Greater(t, far, -1)
	require.Less(t, near, far)
}

func TestAssembleNoChunksFit(t *testing.T) {
	a := NewAssembler(fixedCounter{baseCost: 500, chunkCost: 1000}, 1500)
	chunks := []model.RankedChunk{
		{URL: "https://kb.example.com/a", Text: "first", Distance: 0.1},
	}
	prompt := a.Assemble("question", chunks)
	require.NotContains(t, prompt, "first")
	require.Contains(t, prompt, "<search_tool_context>")
	require.Contains(t, prompt, "</search_tool_context>")
	require.Contains(t, prompt, "Question: question\nAnswer:")
}

func TestAssembleRealTokenizer(t *testing.T) {
	a := NewAssembler(NewTokenCounter(), 4096)
	chunks := []model.RankedChunk{
		{URL: "https://kb.example.com/breaks", Text: "Breaks over 10 minutes are unpaid.", Distance: 0.2},
	}
	prompt := a.Assemble("How are breaks handled?", chunks)
	require.Contains(t, prompt, "Breaks over 10 minutes are unpaid.")
	require.True(t, strings.HasSuffix(prompt, "Answer:"))
}

package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmorrel/helpqa/internal/model"
)

const preamble = "You are a helpful agent that helps answer questions that customer support agents have while they are working with problems of their customers. " +
	"You are given a question and a set of context that contains information about the customer's problem or question. " +
	"Only focus on the information within <search_tool_context> to </search_tool_context>, do not invent or create new information. " +
	"The context is derived from a set of articles as well as data from internal slack conversations where these questions may have been discussed in the past. " +
	"Format your response using proper Markdown syntax:\n" +
	"For bullet points, start each item on a new line with '* ' (asterisk followed by a space):\n" +
	"Example:\n" +
	"* First item\n" +
	"* Second item\n\n" +
	"For numbered lists:\n" +
	"1. First item\n" +
	"2. Second item\n\n" +
	"Your answer should be straight forward and to the point. Don't use words like 'According to the context provided' or 'Based on the context provided' instead just state the answer. " +
	"Also avoid using terms like 'articles states' or 'according to the article' instead just use the information given in the context to answer the question. " +
	"If the answer cannot be found in the context, say 'I don't have enough information to answer that question.' " +
	"Total output characters should be less than 50000. " +
	"If you find the answer, include the relevant article URLs at the bottom of your response using the format: " +
	"\n\n---\n\nFor more information, see: [Article Title or Slack thread url](URL)\n\n"

// answerTokenMargin is reserved out of the budget so the assembled prompt
// never packs context right up to the model's limit.
const answerTokenMargin = 100

// Assembler builds the generation prompt from ranked chunks, packing
// whole chunks closest first until the next one would break the token
// budget.
type Assembler struct {
	counter TokenCounter
	budget  int
}

func NewAssembler(counter TokenCounter, budget int) *Assembler {
	if budget <= 0 {
		budget = 4096
	}
	return &Assembler{counter: counter, budget: budget}
}

func (a *Assembler) Assemble(question string, chunks []model.RankedChunk) string {
	ordered := make([]model.RankedChunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Distance < ordered[j].Distance
	})

	var context strings.Builder
	total := a.counter.Count(preamble + question)
	for _, chunk := range ordered {
		block := fmt.Sprintf("Article URL: %s\n%s\n\n", chunk.URL, chunk.Text)
		cost := a.counter.Count(block)
		if total+cost+answerTokenMargin >= a.budget {
			break
		}
		context.WriteString(block)
		total += cost
	}
	return preamble + "<search_tool_context> " + context.String() + " </search_tool_context>\nQuestion: " + question + "\nAnswer:"
}

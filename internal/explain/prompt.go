package explain

import (
	"encoding/json"
	"strings"
)

const promptInstructions = `Explain in simple, clear language WHY this product is recommended.
Focus on:
- category similarity
- price range patterns
- brand preferences
- user browsing or clicking patterns
- product attributes alignment

Keep the explanation short and helpful (4-6 sentences).`

// buildPrompt renders the LLM prompt. Missing context renders as an empty
// JSON object so the model still answers from the product alone.
func buildPrompt(summary, product map[string]any, filters Filters) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant explaining product recommendations for an e-commerce store.\n\n")
	b.WriteString("User behavior summary:\n")
	b.WriteString(renderJSON(summary))
	b.WriteString("\n\nProduct details:\n")
	b.WriteString(renderJSON(product))
	b.WriteString("\n\nFilters used:\n")
	b.WriteString(renderJSON(map[string]any{
		"filter_category": filters.Category,
		"min_price":       filters.MinPrice,
		"max_price":       filters.MaxPrice,
	}))
	b.WriteString("\n\n")
	b.WriteString(promptInstructions)
	return b.String()
}

func renderJSON(v map[string]any) string {
	if v == nil {
		v = map[string]any{}
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}

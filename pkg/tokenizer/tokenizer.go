// Package tokenizer estimates token counts for chunk sizing and metadata.
package tokenizer

import "strings"

// CountTokens returns a rough token estimate for English text. Word count
// scaled by 4/3 tracks OpenAI-style tokenizers closely enough for chunk
// metadata; exact counts would need a model-specific tokenizer.
func CountTokens(text string) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	n := len(words) * 4 / 3
	if n < 1 {
		n = 1
	}
	return n
}

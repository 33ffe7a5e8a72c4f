package driven

// Tokenizer measures and truncates text in model tokens.
type Tokenizer interface {
	// Count returns the number of tokens in text, excluding special tokens.
	Count(text string) int

	// Truncate returns the longest prefix of text that fits in maxTokens,
	// excluding special tokens.
	Truncate(text string, maxTokens int) string
}

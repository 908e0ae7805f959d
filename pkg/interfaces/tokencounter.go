package interfaces

// TokenCounter is an interface for counting tokens in text
type TokenCounter interface {
	CountTokens(text string, model string) (int, error)
}

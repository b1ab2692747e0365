package segchat

// Usage tracks reasoning-engine token consumption for a single response.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

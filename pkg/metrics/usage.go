package metrics

import "sync"

// TokenUsage captures provider token counts.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether usage data is absent.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// Add returns the field-wise sum. A missing total is derived from the parts.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	if other.TotalTokens == 0 {
		other.TotalTokens = other.PromptTokens + other.CompletionTokens
	}
	return TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// Meter accumulates usage across provider calls. The zero value is ready to use.
type Meter struct {
	mu       sync.Mutex
	totals   TokenUsage
	requests int
}

// Record adds one call's usage.
func (m *Meter) Record(u TokenUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals = m.totals.Add(u)
	m.requests++
}

// Snapshot returns the running totals and the number of recorded calls.
func (m *Meter) Snapshot() (TokenUsage, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals, m.requests
}

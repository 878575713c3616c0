package workflow

import (
	"slices"
	"sync"

	"github.com/RahulDas-dev/invoice-parser/models"
)

// TokenLedger is an append-only record of model usage, safe for concurrent appends.
type TokenLedger struct {
	mu      sync.Mutex
	entries []models.TokenCount
}

func (l *TokenLedger) Append(counts ...models.TokenCount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, counts...)
}

// Entries returns a copy of the ledger in append order.
func (l *TokenLedger) Entries() []models.TokenCount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Totals sums request and response tokens per model.
func (l *TokenLedger) Totals() map[string]models.TokenCount {
	l.mu.Lock()
	defer l.mu.Unlock()
	totals := make(map[string]models.TokenCount)
	for _, e := range l.entries {
		t := totals[e.ModelName]
		t.ModelName = e.ModelName
		t.RequestTokens += e.RequestTokens
		t.ResponseTokens += e.ResponseTokens
		totals[e.ModelName] = t
	}
	return totals
}

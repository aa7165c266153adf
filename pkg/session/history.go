package session

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// MaxHistoryTurns bounds the raw turn count before token trimming.
	MaxHistoryTurns = 20

	// DefaultHistoryTokenBudget bounds how much history is replayed into
	// LLM prompts.
	DefaultHistoryTokenBudget = 1500
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// countTokens uses the cl100k_base tokenizer, falling back to a 4-chars-
// per-token estimate if the encoding cannot be loaded offline.
func countTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return len(text) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// AppendTurn appends a turn and trims the history to both the turn cap
// and the token budget, dropping oldest turns first.
func (d *Data) AppendTurn(role, text string, ts int64) {
	d.History = append(d.History, Turn{Role: role, Text: text, Timestamp: ts})
	d.History = TrimHistory(d.History, DefaultHistoryTokenBudget)
}

// TrimHistory returns the longest suffix of turns that fits both
// MaxHistoryTurns and the token budget.
func TrimHistory(turns []Turn, tokenBudget int) []Turn {
	if len(turns) > MaxHistoryTurns {
		turns = turns[len(turns)-MaxHistoryTurns:]
	}

	total := 0
	// Walk backwards so the most recent turns always survive.
	for i := len(turns) - 1; i >= 0; i-- {
		total += countTokens(turns[i].Text)
		if total > tokenBudget {
			return turns[i+1:]
		}
	}
	return turns
}

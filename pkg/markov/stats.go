package markov

// ModelStats holds aggregated statistics for a single Markov model.
type ModelStats struct {
	Order          int `json:"order"`           // The number of tokens in each state
	States         int `json:"states"`          // The number of distinct states
	Transitions    int `json:"transitions"`     // The number of unique state->next_token links
	TotalFrequency int `json:"total_frequency"` // The sum of all link counts; the total number of trained transitions
	StartingTokens int `json:"starting_tokens"` // The number of unique tokens that can start a sentence
	Sentences      int `json:"sentences"`       // The number of sentences the model was trained on
}

// Stats returns a snapshot of statistics for the model.
func (m *Model) Stats() ModelStats {
	stats := ModelStats{
		Order:  m.order,
		States: len(m.chain),
	}
	for _, t := range m.chain {
		stats.Transitions += len(t.tokens)
		stats.TotalFrequency += t.total()
	}
	if t, ok := m.chain[stateKey(beginState(m.order))]; ok {
		stats.StartingTokens = len(t.tokens)
		// Every sentence leaves the begin state exactly once.
		stats.Sentences = t.total()
	}
	return stats
}

package markov

import "fmt"

// Prune returns a new model without the links whose count is less than or
// equal to minFreq. States from which End can no longer be reached are dropped
// along with every link leading into them, so every remaining walk can still
// finish a sentence. Prune fails with ErrEmptyCorpus if the begin state does
// not survive.
func Prune(m *Model, minFreq int) (*Model, error) {
	c := newChainCounts(m.order)
	for _, state := range m.states {
		t := m.chain[stateKey(state)]
		for i, tok := range t.tokens {
			if t.counts[i] > minFreq {
				c.add(state, tok, t.counts[i])
			}
		}
	}
	c.keepLive()
	if _, ok := c.states[stateKey(beginState(m.order))]; !ok {
		return nil, fmt.Errorf("%w: no sentence survives pruning links seen at most %d times", ErrEmptyCorpus, minFreq)
	}
	return c.model(), nil
}

// Merge returns a new model whose counts are the sums of the counts of a and b,
// as if it had been built from both corpora. The orders must match.
func Merge(a, b *Model) (*Model, error) {
	if a.order != b.order {
		return nil, fmt.Errorf("%w: %d and %d", ErrOrderMismatch, a.order, b.order)
	}
	c := newChainCounts(a.order)
	for _, m := range []*Model{a, b} {
		for _, state := range m.states {
			t := m.chain[stateKey(state)]
			for i, tok := range t.tokens {
				c.add(state, tok, t.counts[i])
			}
		}
	}
	return c.model(), nil
}

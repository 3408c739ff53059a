package markov

import (
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Record is a single link of a Markov chain: the number of times Next followed
// State in the corpus. It is the unit of the persisted form.
type Record struct {
	State []string `json:"state"`
	Next  string   `json:"next"`
	Count int      `json:"count"`
}

// Model is a trained, immutable Markov chain of a fixed order. All methods are
// safe for concurrent use.
type Model struct {
	order  int
	chain  map[string]*transitions
	states [][]string // sorted, for stable iteration
}

// transitions holds the outgoing distribution of one state. tokens are sorted
// and cumulative[i] is the sum of counts[0..i].
type transitions struct {
	tokens     []string
	counts     []int
	cumulative []int
}

func (t *transitions) total() int {
	return t.cumulative[len(t.cumulative)-1]
}

// choose draws a token with probability proportional to its count using a
// single uniform draw over the cumulative table.
func (t *transitions) choose(intN func(int) int) string {
	r := intN(t.total())
	return t.tokens[sort.SearchInts(t.cumulative, r+1)]
}

// stateKey encodes a state unambiguously, whatever characters its tokens contain.
func stateKey(state []string) string {
	var b strings.Builder
	for _, tok := range state {
		b.WriteString(strconv.Itoa(len(tok)))
		b.WriteByte(':')
		b.WriteString(tok)
	}
	return b.String()
}

func beginState(order int) []string {
	state := make([]string, order)
	for i := range state {
		state[i] = Begin
	}
	return state
}

// Order returns the number of tokens in every state of the model.
func (m *Model) Order() int {
	return m.order
}

// Len returns the number of distinct states in the chain.
func (m *Model) Len() int {
	return len(m.states)
}

// Counts returns a copy of the next-token counts observed after state, or nil
// if the state is unknown.
func (m *Model) Counts(state []string) map[string]int {
	t, ok := m.chain[stateKey(state)]
	if !ok {
		return nil
	}
	counts := make(map[string]int, len(t.tokens))
	for i, tok := range t.tokens {
		counts[tok] = t.counts[i]
	}
	return counts
}

// Records returns every link of the chain, sorted by state and then by next token.
func (m *Model) Records() []Record {
	var records []Record
	for _, state := range m.states {
		t := m.chain[stateKey(state)]
		for i, tok := range t.tokens {
			records = append(records, Record{
				State: slices.Clone(state),
				Next:  tok,
				Count: t.counts[i],
			})
		}
	}
	return records
}

// Recognizes reports whether tokens form a complete walk through the chain:
// every token follows the previous state with a non-zero count and the final
// state can be followed by End.
func (m *Model) Recognizes(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	state := beginState(m.order)
	for _, tok := range append(slices.Clone(tokens), End) {
		t, ok := m.chain[stateKey(state)]
		if !ok {
			return false
		}
		if _, found := slices.BinarySearch(t.tokens, tok); !found {
			return false
		}
		state = append(state[1:], tok)
	}
	return true
}

// chainCounts accumulates links while a model is being built. It is owned by
// a single builder and turned into an immutable Model by model().
type chainCounts struct {
	order  int
	states map[string]*stateCounts
}

type stateCounts struct {
	state []string
	next  map[string]int
}

func newChainCounts(order int) *chainCounts {
	return &chainCounts{order: order, states: make(map[string]*stateCounts)}
}

func (c *chainCounts) add(state []string, next string, n int) {
	key := stateKey(state)
	sc, ok := c.states[key]
	if !ok {
		sc = &stateCounts{state: slices.Clone(state), next: make(map[string]int)}
		c.states[key] = sc
	}
	sc.next[next] += n
}

func (c *chainCounts) has(state []string, next string) bool {
	sc, ok := c.states[stateKey(state)]
	if !ok {
		return false
	}
	_, ok = sc.next[next]
	return ok
}

// successor returns the state a walk is in after emitting next from state.
func successor(state []string, next string) []string {
	s := make([]string, len(state))
	copy(s, state[1:])
	s[len(s)-1] = next
	return s
}

// checkClosed reports a chain a walk can get stuck in: one without the begin
// state, or with a link into a state that has no transitions.
func (c *chainCounts) checkClosed() error {
	if _, ok := c.states[stateKey(beginState(c.order))]; !ok {
		return corruptf("chain has no begin state")
	}
	for _, sc := range c.states {
		for next := range sc.next {
			if next == End {
				continue
			}
			if _, ok := c.states[stateKey(successor(sc.state, next))]; !ok {
				return corruptf("link %q -> %q leads to a state without transitions", sc.state, next)
			}
		}
	}
	return nil
}

// keepLive removes every state from which no walk can reach End, and every
// link leading into such a state. Each remaining state keeps at least one link.
func (c *chainCounts) keepLive() {
	live := make(map[string]bool, len(c.states))
	for changed := true; changed; {
		changed = false
		for key, sc := range c.states {
			if live[key] {
				continue
			}
			for next := range sc.next {
				if next == End || live[stateKey(successor(sc.state, next))] {
					live[key] = true
					changed = true
					break
				}
			}
		}
	}
	for key, sc := range c.states {
		if !live[key] {
			delete(c.states, key)
			continue
		}
		for next := range sc.next {
			if next != End && !live[stateKey(successor(sc.state, next))] {
				delete(sc.next, next)
			}
		}
	}
}

func (c *chainCounts) model() *Model {
	m := &Model{
		order:  c.order,
		chain:  make(map[string]*transitions, len(c.states)),
		states: make([][]string, 0, len(c.states)),
	}
	for key, sc := range c.states {
		t := &transitions{
			tokens:     make([]string, 0, len(sc.next)),
			counts:     make([]int, len(sc.next)),
			cumulative: make([]int, len(sc.next)),
		}
		for tok := range sc.next {
			t.tokens = append(t.tokens, tok)
		}
		slices.Sort(t.tokens)
		sum := 0
		for i, tok := range t.tokens {
			t.counts[i] = sc.next[tok]
			sum += t.counts[i]
			t.cumulative[i] = sum
		}
		m.chain[key] = t
		m.states = append(m.states, sc.state)
	}
	slices.SortFunc(m.states, slices.Compare[[]string])
	return m
}

// NewModel validates records and assembles them into a Model. It is the entry
// point for every persisted source, and fails with ErrCorruptModel when the
// records could not have come from a well-formed chain.
func NewModel(order int, records []Record) (*Model, error) {
	if order < 1 {
		return nil, corruptf("order %d is below 1", order)
	}
	if len(records) == 0 {
		return nil, corruptf("chain has no records")
	}
	c := newChainCounts(order)
	for i, rec := range records {
		if len(rec.State) != order {
			return nil, corruptf("record %d: state has %d tokens, want %d", i, len(rec.State), order)
		}
		if rec.Count <= 0 {
			return nil, corruptf("record %d: count %d is not positive", i, rec.Count)
		}
		if slices.Contains(rec.State, End) {
			return nil, corruptf("record %d: state contains the end marker", i)
		}
		if rec.Next == "" || slices.Contains(rec.State, "") {
			return nil, corruptf("record %d: empty token", i)
		}
		if rec.Next == Begin {
			return nil, corruptf("record %d: next token is the begin marker", i)
		}
		if c.has(rec.State, rec.Next) {
			return nil, corruptf("record %d: duplicate link %q -> %q", i, rec.State, rec.Next)
		}
		c.add(rec.State, rec.Next, rec.Count)
	}
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	return c.model(), nil
}

package markov

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// persistedModel is the serialized representation of a Model. Order is a
// pointer so that a missing field can be told apart from zero.
type persistedModel struct {
	Order *int     `json:"order"`
	Chain []Record `json:"chain"`
}

// Encode writes m to w as indented JSON. Records are sorted by state and next
// token, so equal models always encode to identical bytes.
func Encode(w io.Writer, m *Model) error {
	order := m.order
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(persistedModel{Order: &order, Chain: m.Records()})
}

// Marshal returns the JSON encoding of m.
func Marshal(m *Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a model previously written by Encode. Any deviation from the
// persisted form (unknown fields, trailing data, a missing order, wrong state
// arity, non-positive or duplicate counts) fails with ErrCorruptModel; corrupt
// input is never coerced into a usable model.
func Decode(r io.Reader) (*Model, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var p persistedModel
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptModel, err)
	}
	var extra json.RawMessage
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, corruptf("trailing data after model")
	}
	if p.Order == nil {
		return nil, corruptf("missing order")
	}
	return NewModel(*p.Order, p.Chain)
}

// Unmarshal parses a model from its JSON encoding. See Decode.
func Unmarshal(data []byte) (*Model, error) {
	return Decode(bytes.NewReader(data))
}

package telemetry

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNumber
	KindText
)

// Value is a single telemetry reading: numeric, textual, or something
// the decoder could not classify.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

func Number(v float64) Value { return Value{Kind: KindNumber, Num: v} }

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

func classify(raw any) Value {
	switch v := raw.(type) {
	case float64:
		return Number(v)
	case int:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case uint64:
		return Number(float64(v))
	case string:
		return Text(v)
	default:
		return Value{}
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = classify(raw)
	return nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*v = classify(raw)
	return nil
}

// Payload maps metric names to their readings for one snapshot.
type Payload map[string]Value

// Number reports the value for key when it is present and numeric.
func (p Payload) Number(key string) (float64, bool) {
	v, ok := p[key]
	if !ok || v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Text reports the value for key when it is present and textual.
func (p Payload) Text(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v.Kind != KindText {
		return "", false
	}
	return v.Text, true
}

// Sample is one telemetry snapshot for a single component. Samples are
// transient; only derived records are persisted.
type Sample struct {
	Component string  `json:"component"`
	Payload   Payload `json:"payload"`
}

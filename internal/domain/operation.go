package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type OperationKind string

const (
	OperationPress  OperationKind = "press"
	OperationHotkey OperationKind = "hotkey"
	OperationWrite  OperationKind = "write"
	OperationClick  OperationKind = "click"
	OperationDone   OperationKind = "done"
)

// Operation is one planned UI step. The set of implementations is closed:
// KeyOperation, WriteOperation, ClickOperation, DoneOperation and
// UnknownOperation.
type Operation interface {
	Kind() OperationKind
	Thought() string
	isOperation()
}

// KeyOperation covers both press and hotkey.
type KeyOperation struct {
	Op     OperationKind
	Reason string
	Keys   []string
}

type WriteOperation struct {
	Reason  string
	Content string
}

// ClickOperation coordinates are normalized to the screen, 0..1 on each axis.
type ClickOperation struct {
	Reason string
	X      float64
	Y      float64
}

type DoneOperation struct {
	Reason  string
	Summary string
}

// UnknownOperation carries a planner response whose operation field is not
// recognized. Executing it is fatal for the current task.
type UnknownOperation struct {
	Name   string
	Reason string
	Raw    json.RawMessage
}

func (o KeyOperation) Kind() OperationKind     { return o.Op }
func (o WriteOperation) Kind() OperationKind   { return OperationWrite }
func (o ClickOperation) Kind() OperationKind   { return OperationClick }
func (o DoneOperation) Kind() OperationKind    { return OperationDone }
func (o UnknownOperation) Kind() OperationKind { return OperationKind(o.Name) }

func (o KeyOperation) Thought() string     { return o.Reason }
func (o WriteOperation) Thought() string   { return o.Reason }
func (o ClickOperation) Thought() string   { return o.Reason }
func (o DoneOperation) Thought() string    { return o.Reason }
func (o UnknownOperation) Thought() string { return o.Reason }

func (KeyOperation) isOperation()     {}
func (WriteOperation) isOperation()   {}
func (ClickOperation) isOperation()   {}
func (DoneOperation) isOperation()    {}
func (UnknownOperation) isOperation() {}

type wireOperation struct {
	Operation string          `json:"operation"`
	Thought   string          `json:"thought,omitempty"`
	Keys      json.RawMessage `json:"keys,omitempty"`
	Content   *string         `json:"content,omitempty"`
	X         json.RawMessage `json:"x,omitempty"`
	Y         json.RawMessage `json:"y,omitempty"`
	Summary   *string         `json:"summary,omitempty"`
}

// ParseOperations decodes a JSON array of planner operations. Unrecognized
// operation names decode to UnknownOperation rather than failing.
func ParseOperations(data []byte) ([]Operation, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode operations: %w", err)
	}

	ops := make([]Operation, 0, len(raws))
	for i, raw := range raws {
		op, err := ParseOperation(raw)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
		ops = append(ops, op)
	}

	return ops, nil
}

func ParseOperation(raw json.RawMessage) (Operation, error) {
	var wire wireOperation
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}

	name := OperationKind(strings.ToLower(strings.TrimSpace(wire.Operation)))
	switch name {
	case OperationPress, OperationHotkey:
		keys, err := decodeKeys(wire.Keys)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("%s operation requires keys", name)
		}
		return KeyOperation{Op: name, Reason: wire.Thought, Keys: keys}, nil
	case OperationWrite:
		if wire.Content == nil {
			return nil, fmt.Errorf("write operation requires content")
		}
		return WriteOperation{Reason: wire.Thought, Content: *wire.Content}, nil
	case OperationClick:
		x, err := decodeCoordinate("x", wire.X)
		if err != nil {
			return nil, err
		}
		y, err := decodeCoordinate("y", wire.Y)
		if err != nil {
			return nil, err
		}
		return ClickOperation{Reason: wire.Thought, X: x, Y: y}, nil
	case OperationDone:
		summary := ""
		if wire.Summary != nil {
			summary = *wire.Summary
		}
		return DoneOperation{Reason: wire.Thought, Summary: summary}, nil
	default:
		return UnknownOperation{Name: wire.Operation, Reason: wire.Thought, Raw: bytes.Clone(raw)}, nil
	}
}

// EncodeOperations renders operations back to the planner wire format, used
// when operations are appended to conversation history.
func EncodeOperations(ops []Operation) ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ops))
	for _, op := range ops {
		encoded, err := encodeOperation(op)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}

	return json.Marshal(out)
}

func encodeOperation(op Operation) (json.RawMessage, error) {
	type clickWire struct {
		Operation string  `json:"operation"`
		Thought   string  `json:"thought,omitempty"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
	}

	var v any
	switch o := op.(type) {
	case KeyOperation:
		v = struct {
			Operation string   `json:"operation"`
			Thought   string   `json:"thought,omitempty"`
			Keys      []string `json:"keys"`
		}{string(o.Op), o.Reason, o.Keys}
	case WriteOperation:
		v = struct {
			Operation string `json:"operation"`
			Thought   string `json:"thought,omitempty"`
			Content   string `json:"content"`
		}{string(OperationWrite), o.Reason, o.Content}
	case ClickOperation:
		v = clickWire{string(OperationClick), o.Reason, o.X, o.Y}
	case DoneOperation:
		v = struct {
			Operation string `json:"operation"`
			Thought   string `json:"thought,omitempty"`
			Summary   string `json:"summary"`
		}{string(OperationDone), o.Reason, o.Summary}
	case UnknownOperation:
		if len(o.Raw) > 0 {
			return o.Raw, nil
		}
		v = struct {
			Operation string `json:"operation"`
		}{o.Name}
	default:
		return nil, fmt.Errorf("unsupported operation type %T", op)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode operation: %w", err)
	}

	return data, nil
}

// DescribeOperation returns the action detail printed after each step.
func DescribeOperation(op Operation) string {
	switch o := op.(type) {
	case KeyOperation:
		return fmt.Sprintf("%s %s", o.Op, strings.Join(o.Keys, "+"))
	case WriteOperation:
		return fmt.Sprintf("write %q", o.Content)
	case ClickOperation:
		return fmt.Sprintf("click {x: %.3f, y: %.3f}", o.X, o.Y)
	case DoneOperation:
		return fmt.Sprintf("done %s", o.Summary)
	case UnknownOperation:
		return fmt.Sprintf("unknown %q", o.Name)
	default:
		return fmt.Sprintf("%T", op)
	}
}

func decodeKeys(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return normalizeKeys(list), nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("keys must be a string or a list of strings")
	}

	return normalizeKeys(strings.Split(single, "+")), nil
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		out = append(out, key)
	}

	return out
}

func decodeCoordinate(axis string, raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("click operation requires %s", axis)
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("click %s must be a number", axis)
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, fmt.Errorf("click %s must be a number: %w", axis, err)
		}
		value = parsed
	}

	if value < 0 || value > 1 {
		return 0, fmt.Errorf("click %s %.3f outside normalized range [0,1]", axis, value)
	}

	return value, nil
}

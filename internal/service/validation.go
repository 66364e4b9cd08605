package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// envelope is a decoded request envelope.
type envelope struct {
	command string
	msg     json.RawMessage
	hasMsg  bool
}

// decodeEnvelope checks the root shape: a JSON object with a string
// "command". On error there is no command to echo.
func decodeEnvelope(raw []byte) (envelope, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil || root == nil {
		return envelope{}, invalid("", "envelope must be a JSON object")
	}

	rawCmd, ok := root["command"]
	if !ok {
		return envelope{}, invalid("command", "required")
	}

	var env envelope
	if firstByte(rawCmd) != '"' || json.Unmarshal(rawCmd, &env.command) != nil {
		return envelope{}, invalid("command", "must be a string")
	}

	env.msg, env.hasMsg = root["msg"]
	return env, nil
}

// fields is a decoded msg object.
type fields map[string]json.RawMessage

// decodeFields requires msg to be an object holding every required key.
func decodeFields(msg json.RawMessage, required ...string) (fields, error) {
	var f fields
	if err := json.Unmarshal(msg, &f); err != nil || f == nil {
		return nil, invalid("msg", "must be an object")
	}
	for _, key := range required {
		if _, ok := f[key]; !ok {
			return nil, invalid(key, "required")
		}
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// isNumber reports whether raw is a JSON number literal. json.Number on its
// own would also accept a quoted number.
func isNumber(raw json.RawMessage) bool {
	c := firstByte(raw)
	return c == '-' || (c >= '0' && c <= '9')
}

// firstByte returns the first non-space byte of a JSON value.
func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func (f fields) string(key string) (string, error) {
	var s string
	if isNull(f[key]) || json.Unmarshal(f[key], &s) != nil {
		return "", invalid(key, "must be a string")
	}
	return s, nil
}

func (f fields) bool(key string) (bool, error) {
	var b bool
	if isNull(f[key]) || json.Unmarshal(f[key], &b) != nil {
		return false, invalid(key, "must be a boolean")
	}
	return b, nil
}

func (f fields) int(key string) (int, error) {
	n, ok := parseInt(f[key])
	if !ok {
		return 0, invalid(key, "must be an integer")
	}
	return n, nil
}

// optionalInt returns nil for JSON null.
func (f fields) optionalInt(key string) (*int, error) {
	if isNull(f[key]) {
		return nil, nil
	}
	n, err := f.int(key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (f fields) number(key string) (float64, error) {
	var n json.Number
	if !isNumber(f[key]) || json.Unmarshal(f[key], &n) != nil {
		return 0, invalid(key, "must be a number")
	}
	v, err := n.Float64()
	if err != nil {
		return 0, invalid(key, "must be a number")
	}
	return v, nil
}

func parseInt(raw json.RawMessage) (int, bool) {
	var n json.Number
	if !isNumber(raw) || json.Unmarshal(raw, &n) != nil {
		return 0, false
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, false
	}
	return v, true
}

// decodeValue decodes a JSON value keeping integers as int64 and other
// numbers as float64. Numbers that do not fit a float64 are rejected.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, invalid("value", "must be valid JSON")
	}
	return normalizeNumbers(v)
}

func normalizeNumbers(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, invalid("value", "number "+t.String()+" is out of range")
		}
		return f, nil
	case []any:
		for i := range t {
			n, err := normalizeNumbers(t[i])
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	case map[string]any:
		for k := range t {
			n, err := normalizeNumbers(t[k])
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	default:
		return v, nil
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, int64, float64, bool:
		return true
	default:
		return false
	}
}

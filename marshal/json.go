package marshal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// EncodeJSON renders a foreign tree as JSON for subprocess executors.
func EncodeJSON(f Foreign) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode foreign value: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeJSON parses JSON produced by a foreign runtime into a foreign tree.
// Integers decode as int64 (not float64) so the primitive round-trip stays
// exact; anything with a fraction or exponent decodes as float64.
func DecodeJSON(data []byte) (Foreign, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode foreign value: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode foreign value: trailing data")
	}
	return normalize(raw)
}

func normalize(raw any) (Foreign, error) {
	switch t := raw.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("unrepresentable number %q", t.String())
		}
		return f, nil
	case []any:
		out := make([]Foreign, len(t))
		for i, el := range t {
			n, err := normalize(el)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]Foreign, len(t))
		for k, el := range t {
			n, err := normalize(el)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	default:
		return raw, nil
	}
}

// sortedMapKeys keeps dict construction deterministic when the wire format
// (JSON objects) has no inherent order.
func sortedMapKeys(m map[string]Foreign) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

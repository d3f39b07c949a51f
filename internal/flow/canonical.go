package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON (RFC 8785 subset) for content
// hashing. This is the ONLY serialization used for content identity.
//
// Differences from standard json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Floats and nulls are rejected (content has no use for either, and
//     both break cross-platform hash stability)
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int:
		return fmt.Appendf(nil, "%d", val), nil
	case int64:
		return fmt.Appendf(nil, "%d", val), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		return marshalCanonicalArray(val)
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return marshalCanonicalArray(arr)
	case map[string]any:
		return marshalCanonicalObject(val)
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := MarshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')

		valJSON, err := MarshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// compareKeysUTF16 compares strings by UTF-16 code units as RFC 8785
// requires. Go's sort.Strings compares UTF-8 bytes, which orders
// supplementary-plane characters differently.
func compareKeysUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	default:
		return 0
	}
}

// marshalCanonicalString produces a canonical JSON string: NFC normalized,
// no HTML escaping. Only control characters, backslash, and quote are
// escaped by the encoder, which matches RFC 8785 for the strings that occur
// in dialogue content.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// Encoder appends a trailing newline.
	result := buf.Bytes()
	if n := len(result); n > 0 && result[n-1] == '\n' {
		result = result[:n-1]
	}
	return result, nil
}

// canonicalMap flattens Content into the plain map form MarshalCanonical
// accepts. Triggers are a set; they are sorted here so trigger order never
// affects content identity. Response order is meaningful and preserved.
func (c Content) canonicalMap() map[string]any {
	triggers := append([]string(nil), c.Triggers...)
	slices.SortFunc(triggers, compareKeysUTF16)

	responses := make([]any, len(c.Responses))
	for i, b := range c.Responses {
		responses[i] = blockCanonicalMap(b)
	}

	return map[string]any{
		"triggers":  triggers,
		"responses": responses,
	}
}

// blockCanonicalMap converts a block to its canonical map form. Explicit
// per-variant construction; empty optional fields are omitted so adding a
// field later does not disturb existing hashes.
func blockCanonicalMap(b ResponseBlock) map[string]any {
	m := map[string]any{"kind": string(b.Kind())}
	if label := b.BlockLabel(); label != "" {
		m["label"] = label
	}

	switch v := b.(type) {
	case TextBlock:
		m["text"] = v.Text
	case GotoBlock:
		m["target_interaction_id"] = v.TargetID
	case QuickReplyBlock:
		m["prompt"] = v.Prompt
		options := make([]any, len(v.Options))
		for i, o := range v.Options {
			options[i] = o
		}
		m["options"] = options
	case SetAttributeBlock:
		m["attribute"] = v.Attribute
		m["value"] = v.Value
	case FallbackBlock:
		if v.Text != "" {
			m["text"] = v.Text
		}
		if v.TargetID != "" {
			m["target_interaction_id"] = v.TargetID
		}
	}
	return m
}

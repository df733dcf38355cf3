// Package canonicaljson renders values as canonical JSON: object keys
// sorted lexicographically, no insignificant whitespace, standard JSON
// token escaping. Receipt signatures are computed over this encoding, so
// any third-party verifier that sorts keys the same way reproduces the
// exact signed bytes.
package canonicaljson

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// Marshal encodes v canonically. Numbers pass through verbatim (the value
// is first round-tripped through encoding/json with UseNumber so integer
// timestamps keep their exact decimal form).
func Marshal(v interface{}) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal value")
	}
	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode intermediate value")
	}
	var buf bytes.Buffer
	if err := encode(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(string(val))
	case string:
		b, err := json.Marshal(val)
		if err != nil {
			return errors.Wrap(err, "marshal string")
		}
		buf.Write(b)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return errors.Wrap(err, "marshal key")
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encode(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return errors.Errorf("unsupported canonical JSON value of type %T", v)
	}
	return nil
}

// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package couchrest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// toJSON converts a string, []byte, json.RawMessage, or an arbitrary type into
// JSON marshaled data.
func toJSON(i interface{}) ([]byte, error) {
	switch t := i.(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case json.RawMessage:
		return t, nil
	default:
		data, err := json.Marshal(i)
		if err != nil {
			return nil, badRequest(err)
		}
		return data, nil
	}
}

// field is a single member of a JSON object, in wire order.
type field struct {
	key   string
	value json.RawMessage
}

// objectFields splits a JSON object into its members, preserving their order.
func objectFields(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, badRequest(fmt.Errorf("couchrest: invalid document: %w", err))
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, badRequest(errors.New("couchrest: document must be a JSON object"))
	}
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, badRequest(fmt.Errorf("couchrest: invalid document: %w", err))
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, badRequest(fmt.Errorf("couchrest: invalid document: %w", err))
		}
		fields = append(fields, field{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, badRequest(fmt.Errorf("couchrest: invalid document: %w", err))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, badRequest(errors.New("couchrest: invalid document: trailing data after object"))
	}
	return fields, nil
}

// injectRev returns the object with _rev set to rev as its first member. Any
// _rev already present is dropped; the other members keep their order.
func injectRev(fields []field, rev string) []byte {
	buf := &bytes.Buffer{}
	revJSON, _ := json.Marshal(rev)
	buf.WriteString(`{"_rev":`)
	buf.Write(revJSON)
	for _, f := range fields {
		if f.key == "_rev" {
			continue
		}
		key, _ := json.Marshal(f.key)
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(f.value)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

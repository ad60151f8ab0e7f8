/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package schema

import (
	"strings"
)

// Values holds the result of one Composite decode, in declared order
type Values struct {
	names  []string
	values map[string]interface{}
	nodes  map[string]Node
}

func newValues(n int) *Values {
	return &Values{
		names:  make([]string, 0, n),
		values: make(map[string]interface{}, n),
		nodes:  make(map[string]Node, n),
	}
}

func (v *Values) set(name string, value interface{}, node Node) {
	if _, ok := v.values[name]; !ok {
		v.names = append(v.names, name)
	}
	v.values[name] = value
	v.nodes[name] = node
}

// Names returns member names in declared order
func (v *Values) Names() []string {
	if v == nil {
		return nil
	}
	return v.names
}

// Lookup resolves a dotted path like "basic.plus_len"
func (v *Values) Lookup(path string) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	cur := v
	parts := strings.Split(path, ".")
	for i, part := range parts {
		val, ok := cur.values[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return val, true
		}
		sub, ok := val.(*Values)
		if !ok {
			return nil, false
		}
		cur = sub
	}
	return nil, false
}

// Has reports whether the path was decoded
func (v *Values) Has(path string) bool {
	_, ok := v.Lookup(path)
	return ok
}

// Uint returns an integer field as uint64, zero when absent
func (v *Values) Uint(path string) uint64 {
	val, _ := v.Lookup(path)
	switch n := val.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	}
	return 0
}

// Int returns an integer field as int64, zero when absent
func (v *Values) Int(path string) int64 {
	val, _ := v.Lookup(path)
	switch n := val.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	}
	return 0
}

// Bytes returns a raw field, nil when absent
func (v *Values) Bytes(path string) []byte {
	val, _ := v.Lookup(path)
	b, _ := val.([]byte)
	return b
}

// Sub returns a nested composite, nil when absent
func (v *Values) Sub(path string) *Values {
	val, _ := v.Lookup(path)
	sub, _ := val.(*Values)
	return sub
}

// TLV returns a decoded TLV chain, empty when absent
func (v *Values) TLV(path string) *TLVSet {
	val, _ := v.Lookup(path)
	if set, ok := val.(*TLVSet); ok {
		return set
	}
	return newTLVSet()
}

// Elems returns the elements of a counted array
func (v *Values) Elems(path string) []*Values {
	val, _ := v.Lookup(path)
	elems, _ := val.([]*Values)
	return elems
}

// Display renders a field with its display format
func (v *Values) Display(path string) string {
	if v == nil {
		return ""
	}
	idx := strings.LastIndex(path, ".")
	owner, name := v, path
	if idx >= 0 {
		owner, name = v.Sub(path[:idx]), path[idx+1:]
		if owner == nil {
			return ""
		}
	}
	f, ok := owner.nodes[name].(Field)
	if !ok {
		return ""
	}
	return f.Display(owner.values[name])
}

// Map converts the values into nested maps that yaml and json can marshal.
// Integers stay numbers, raw fields and TLV values are rendered with Display.
func (v *Values) Map() map[string]interface{} {
	if v == nil {
		return nil
	}
	out := make(map[string]interface{}, len(v.names))
	for _, name := range v.names {
		switch val := v.values[name].(type) {
		case *Values:
			out[name] = val.Map()
		case *TLVSet:
			out[name] = val.Map()
		case []*Values:
			elems := make([]interface{}, 0, len(val))
			for _, e := range val {
				elems = append(elems, e.Map())
			}
			out[name] = elems
		case []byte:
			f, _ := v.nodes[name].(Field)
			out[name] = f.Display(val)
		default:
			out[name] = val
		}
	}
	return out
}

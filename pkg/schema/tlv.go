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
	"encoding/hex"
	"strconv"
	"unicode"
)

const (
	// TLVEnd is the type of the terminating entry, its length is 0 too
	TLVEnd       = 0
	tlvHeaderLen = 2
)

// TLVChain is a run of (type u8, len u8, value) entries
type TLVChain struct {
	// CapacityFrom names an earlier field of the enclosing composite holding the chain capacity
	CapacityFrom string
	// Capacity is used when CapacityFrom is empty
	Capacity int
	// Max caps the capacity when positive
	Max int
}

func (t TLVChain) Size() int {
	return -1
}

// Apply decodes entries starting at off. The chain ends at the terminator,
// at an entry that would not fit in capacity, or when capacity or the end of
// buf is reached on an entry boundary. An entry that fits in capacity but
// runs past the end of buf is a truncation.
func (t TLVChain) Apply(buf []byte, off, capacity int) (*TLVSet, int, error) {
	if t.Max > 0 && capacity > t.Max {
		capacity = t.Max
	}
	set := newTLVSet()
	cur := 0
	for {
		if cur+tlvHeaderLen > capacity || off+cur == len(buf) {
			break
		}
		if off+cur+tlvHeaderLen > len(buf) {
			return nil, 0, &ErrTruncatedInput{Offset: off + cur, Need: tlvHeaderLen, Have: remaining(buf, off+cur)}
		}
		typ, l := buf[off+cur], int(buf[off+cur+1])
		if typ == TLVEnd && l == 0 {
			cur += tlvHeaderLen
			break
		}
		if cur+tlvHeaderLen+l > capacity {
			break
		}
		start := off + cur + tlvHeaderLen
		if start+l > len(buf) {
			return nil, 0, &ErrTruncatedInput{Offset: start, Need: l, Have: remaining(buf, start)}
		}
		set.put(typ, buf[start:start+l])
		cur += tlvHeaderLen + l
	}
	return set, cur, nil
}

func (t TLVChain) decode(buf []byte, off int, scope *Values) (interface{}, int, error) {
	capacity := t.Capacity
	if t.CapacityFrom != "" {
		if !scope.Has(t.CapacityFrom) {
			return nil, 0, &ErrUnresolvedField{Path: t.CapacityFrom}
		}
		capacity = int(scope.Uint(t.CapacityFrom))
	}
	set, n, err := t.Apply(buf, off, capacity)
	if err != nil {
		return nil, 0, err
	}
	return set, n, nil
}

// TLVSet is the decoded content of a TLV chain.
// A type seen twice keeps the last value.
type TLVSet struct {
	order  []uint8
	values map[uint8][]byte
}

func newTLVSet() *TLVSet {
	return &TLVSet{values: map[uint8][]byte{}}
}

func (s *TLVSet) put(typ uint8, value []byte) {
	if _, ok := s.values[typ]; !ok {
		s.order = append(s.order, typ)
	}
	s.values[typ] = value
}

// Get returns the value of typ or nil when it was never seen
func (s *TLVSet) Get(typ uint8) []byte {
	if s == nil {
		return nil
	}
	return s.values[typ]
}

// String returns the value of typ as text, empty when it was never seen
func (s *TLVSet) String(typ uint8) string {
	return TrimText(s.Get(typ))
}

// Types returns the types in order of first appearance
func (s *TLVSet) Types() []uint8 {
	if s == nil {
		return nil
	}
	return s.order
}

func (s *TLVSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Map renders printable values as text and the rest as hex, keyed by type
func (s *TLVSet) Map() map[string]interface{} {
	out := make(map[string]interface{}, s.Len())
	for _, typ := range s.Types() {
		value := s.values[typ]
		key := strconv.Itoa(int(typ))
		if printable(value) {
			out[key] = TrimText(value)
		} else {
			out[key] = hex.EncodeToString(value)
		}
	}
	return out
}

func printable(b []byte) bool {
	for _, c := range []byte(TrimText(b)) {
		if c > unicode.MaxASCII || !unicode.IsPrint(rune(c)) {
			return false
		}
	}
	return true
}

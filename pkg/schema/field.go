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

// Package schema describes fixed binary layouts and decodes byte spans
// against them. Layouts are immutable and shared, every decode call
// returns its own Values.
package schema

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const (
	// FormatHex renders raw bytes as a hex string
	FormatHex = "hex"
	// FormatText renders raw bytes as text with trailing NULs removed
	FormatText = "text"
)

// Node is a member of a Composite
type Node interface {
	// Size returns the static size in bytes or -1 when it depends on the data
	Size() int
	decode(buf []byte, off int, scope *Values) (interface{}, int, error)
}

// Field is a fixed width scalar or byte string.
// Format is only used by Display and never changes the decoded value.
type Field struct {
	Width  int
	Order  binary.ByteOrder
	Signed bool
	Raw    bool
	Format string
}

func U8() Field  { return Field{Width: 1, Order: binary.LittleEndian} }
func U16() Field { return Field{Width: 2, Order: binary.LittleEndian} }
func U32() Field { return Field{Width: 4, Order: binary.LittleEndian} }
func U64() Field { return Field{Width: 8, Order: binary.LittleEndian} }
func I8() Field  { return Field{Width: 1, Order: binary.LittleEndian, Signed: true} }
func I16() Field { return Field{Width: 2, Order: binary.LittleEndian, Signed: true} }
func I32() Field { return Field{Width: 4, Order: binary.LittleEndian, Signed: true} }

// BE16 and BE32 are the big endian exceptions of an otherwise little endian stream
func BE16() Field { return Field{Width: 2, Order: binary.BigEndian, Format: "0x%04x"} }
func BE32() Field { return Field{Width: 4, Order: binary.BigEndian, Format: "0x%08x"} }

func Bytes(n int) Field { return Field{Width: n, Raw: true} }
func Hex(n int) Field   { return Field{Width: n, Raw: true, Format: FormatHex} }
func Text(n int) Field  { return Field{Width: n, Raw: true, Format: FormatText} }

// As returns a copy of the field with another display format
func (f Field) As(format string) Field {
	f.Format = format
	return f
}

func (f Field) Size() int {
	return f.Width
}

// Decode reads the field at off. The value is uint64, int64 or a []byte
// sharing memory with buf.
func (f Field) Decode(buf []byte, off int) (interface{}, int, error) {
	if off < 0 || off+f.Width > len(buf) {
		return nil, off, &ErrTruncatedInput{Offset: off, Need: f.Width, Have: remaining(buf, off)}
	}
	data := buf[off : off+f.Width]
	if f.Raw {
		return data, off + f.Width, nil
	}
	var u uint64
	switch f.Width {
	case 1:
		u = uint64(data[0])
	case 2:
		u = uint64(f.Order.Uint16(data))
	case 4:
		u = uint64(f.Order.Uint32(data))
	case 8:
		u = f.Order.Uint64(data)
	default:
		return nil, off, fmt.Errorf("Unsupported integer width %d", f.Width)
	}
	if !f.Signed {
		return u, off + f.Width, nil
	}
	var i int64
	switch f.Width {
	case 1:
		i = int64(int8(u))
	case 2:
		i = int64(int16(u))
	case 4:
		i = int64(int32(u))
	default:
		i = int64(u)
	}
	return i, off + f.Width, nil
}

func (f Field) decode(buf []byte, off int, _ *Values) (interface{}, int, error) {
	v, next, err := f.Decode(buf, off)
	if err != nil {
		return nil, 0, err
	}
	return v, next - off, nil
}

// Display renders a value decoded by this field
func (f Field) Display(v interface{}) string {
	switch val := v.(type) {
	case []byte:
		switch f.Format {
		case FormatText:
			return TrimText(val)
		case FormatHex, "":
			return hex.EncodeToString(val)
		default:
			return fmt.Sprintf(f.Format, val)
		}
	case uint64, int64:
		if f.Format == "" || f.Format == FormatHex || f.Format == FormatText {
			return fmt.Sprintf("%d", val)
		}
		return fmt.Sprintf(f.Format, val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// TrimText drops trailing NULs and whitespace
func TrimText(b []byte) string {
	return string(bytes.TrimRight(b, "\x00 \t\r\n"))
}

func remaining(buf []byte, off int) int {
	if off < 0 || off > len(buf) {
		return 0
	}
	return len(buf) - off
}

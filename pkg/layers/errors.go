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

package layers

import (
	"fmt"
)

// ErrInvalidLength returned when a record header declares a length shorter than the header itself
type ErrInvalidLength struct {
	Len uint16
	Min int
}

func (e *ErrInvalidLength) Error() string {
	return fmt.Sprintf("Invalid record length %d, must be at least %d", e.Len, e.Min)
}

// ErrChecksumMismatch returned when a computed checksum differs from the stored one
type ErrChecksumMismatch struct {
	What     string
	Expected uint32
	Actual   uint32
}

func (e *ErrChecksumMismatch) Error() string {
	return fmt.Sprintf("%s mismatch: stored 0x%x computed 0x%x", e.What, e.Expected, e.Actual)
}

// ErrSignatureMismatch returned when a structure does not carry its expected signature
type ErrSignatureMismatch struct {
	What     string
	Expected uint32
	Actual   uint32
}

func (e *ErrSignatureMismatch) Error() string {
	return fmt.Sprintf("%s signature mismatch: expected 0x%08x got 0x%08x", e.What, e.Expected, e.Actual)
}

// ErrMalformedFraming returned when a nested frame does not start with a known marker
type ErrMalformedFraming struct {
	Reason string
}

func (e *ErrMalformedFraming) Error() string {
	return fmt.Sprintf("Malformed nested framing: %s", e.Reason)
}

// ErrUnknownType describes a tag that has no entry in its dispatch table
type ErrUnknownType struct {
	Table string
	Tag   string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("Unknown %s %s", e.Table, e.Tag)
}

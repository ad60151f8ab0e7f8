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
	"fmt"
)

// ErrTruncatedInput returned when a field, record or container needs more bytes than the buffer has
type ErrTruncatedInput struct {
	Offset int
	Need   int
	Have   int
}

func (e *ErrTruncatedInput) Error() string {
	return fmt.Sprintf("Truncated input at offset %d: need %d bytes, have %d", e.Offset, e.Need, e.Have)
}

// ErrUnresolvedField returned when a container refers to a sibling field that was not decoded before it
type ErrUnresolvedField struct {
	Path string
}

func (e *ErrUnresolvedField) Error() string {
	return fmt.Sprintf("Field %s is not decoded yet", e.Path)
}

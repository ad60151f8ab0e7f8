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

// CountedArray repeats Elem as many times as an earlier field of the
// enclosing composite says
type CountedArray struct {
	CountFrom string
	Elem      *Composite
}

func (a CountedArray) Size() int {
	return -1
}

// Apply decodes exactly count elements starting at off. Every call returns
// a new slice.
func (a CountedArray) Apply(buf []byte, off, count int) ([]*Values, int, error) {
	if count <= 0 {
		return []*Values{}, 0, nil
	}
	capHint := count
	if size := a.Elem.Size(); size > 0 && remaining(buf, off)/size < capHint {
		capHint = remaining(buf, off) / size
	}
	elems := make([]*Values, 0, capHint)
	cur := off
	for i := 0; i < count; i++ {
		v, n, err := a.Elem.Decode(buf, cur)
		if err != nil {
			return nil, 0, err
		}
		elems = append(elems, v)
		cur += n
	}
	return elems, cur - off, nil
}

func (a CountedArray) decode(buf []byte, off int, scope *Values) (interface{}, int, error) {
	if !scope.Has(a.CountFrom) {
		return nil, 0, &ErrUnresolvedField{Path: a.CountFrom}
	}
	elems, n, err := a.Apply(buf, off, int(scope.Uint(a.CountFrom)))
	if err != nil {
		return nil, 0, err
	}
	return elems, n, nil
}

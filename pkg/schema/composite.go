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
	"strconv"
)

// Member is a named child of a Composite
type Member struct {
	Name string
	Node Node
}

// M is a shorthand for Member
func M(name string, node Node) Member {
	return Member{Name: name, Node: node}
}

// Composite is an ordered list of members decoded back to back
type Composite struct {
	name    string
	members []Member
	size    int
}

func NewComposite(name string, members ...Member) *Composite {
	size := 0
	for _, m := range members {
		s := m.Node.Size()
		if s < 0 || size < 0 {
			size = -1
			continue
		}
		size += s
	}
	return &Composite{
		name:    name,
		members: members,
		size:    size,
	}
}

func (c *Composite) Name() string {
	return c.name
}

// Size returns the sum of the member sizes or -1 when a member is dynamic
func (c *Composite) Size() int {
	return c.size
}

// Members returns the declared members
func (c *Composite) Members() []Member {
	return c.members
}

// Decode walks the members starting at off. A failed decode returns no values.
func (c *Composite) Decode(buf []byte, off int) (*Values, int, error) {
	values := newValues(len(c.members))
	cur := off
	for _, m := range c.members {
		v, n, err := m.Node.decode(buf, cur, values)
		if err != nil {
			return nil, 0, err
		}
		values.set(m.Name, v, m.Node)
		cur += n
	}
	return values, cur - off, nil
}

func (c *Composite) decode(buf []byte, off int, _ *Values) (interface{}, int, error) {
	v, n, err := c.Decode(buf, off)
	if err != nil {
		return nil, 0, err
	}
	return v, n, nil
}

// Repeat returns n copies of field named prefix0..prefixN-1
func Repeat(prefix string, n int, f Field) []Member {
	members := make([]Member, 0, n)
	for i := 0; i < n; i++ {
		members = append(members, M(prefix+strconv.Itoa(i), f))
	}
	return members
}

// Concat joins member lists, for layouts built from Repeat
func Concat(lists ...[]Member) []Member {
	var out []Member
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

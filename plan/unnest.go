// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package plan

import (
	"github.com/sneller/physplan/ion"
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/schema"
)

// ListTypeColumn names a list-typed input column to unnest, and how
// many nesting levels to strip.
type ListTypeColumn struct {
	IndexInInputSchema int
	Depth              int
}

// Unnest flattens list- and struct-typed input columns. Because the
// resulting cardinality and shape cannot be derived from the input
// schema alone, the output schema travels on the wire.
type Unnest struct {
	nonterminal
	ListTypeColumns   []ListTypeColumn
	StructTypeColumns []int
	OutputSchema      schema.Schema
	PreserveNulls     bool
}

func (u *Unnest) Schema() schema.Schema { return u.OutputSchema }
func (u *Unnest) wireTag() string       { return "unnest" }

func (u *Unnest) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("listtypecolumns"))
	dst.BeginList(len(u.ListTypeColumns))
	for _, c := range u.ListTypeColumns {
		dst.BeginStruct(-1)
		dst.BeginField(st.Intern("index"))
		dst.WriteInt(int64(c.IndexInInputSchema))
		dst.BeginField(st.Intern("depth"))
		dst.WriteInt(int64(c.Depth))
		dst.EndStruct()
	}
	dst.EndList()

	dst.BeginField(st.Intern("structtypecolumns"))
	dst.BeginList(len(u.StructTypeColumns))
	for _, idx := range u.StructTypeColumns {
		dst.WriteInt(int64(idx))
	}
	dst.EndList()

	dst.BeginField(st.Intern("schema"))
	u.OutputSchema.Encode(dst, st)

	dst.BeginField(st.Intern("preservenulls"))
	dst.WriteBool(u.PreserveNulls)
}

func decodeUnnest(st *ion.Symtab, body []byte, children []Op) (Op, error) {
	child, err := oneChild(children, "unnest")
	if err != nil {
		return nil, err
	}
	u := &Unnest{nonterminal: nonterminal{input: child}}
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "listtypecolumns":
			_, err2 = ion.UnpackList(v, func(item []byte) error {
				var c ListTypeColumn
				_, ierr := ion.UnpackStruct(st, item, func(f string, b []byte) error {
					var err error
					switch f {
					case "index":
						var n int64
						n, _, err = ion.ReadInt(b)
						c.IndexInInputSchema = int(n)
					case "depth":
						var n int64
						n, _, err = ion.ReadInt(b)
						c.Depth = int(n)
					}
					return err
				})
				if ierr != nil {
					return ierr
				}
				u.ListTypeColumns = append(u.ListTypeColumns, c)
				return nil
			})
		case "structtypecolumns":
			_, err2 = ion.UnpackList(v, func(item []byte) error {
				n, _, err := ion.ReadInt(item)
				if err != nil {
					return err
				}
				u.StructTypeColumns = append(u.StructTypeColumns, int(n))
				return nil
			})
		case "schema":
			u.OutputSchema, _, err2 = schema.Decode(st, v)
		case "preservenulls":
			u.PreserveNulls, _, err2 = ion.ReadBool(v)
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("unnest", uerr)
	}
	return u, nil
}

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

package pexpr

import (
	"github.com/sneller/physplan/ion"
	"github.com/sneller/physplan/schema"
)

// JoinSide tags a column index in a JoinFilter as coming from the
// join's left or right input.
type JoinSide int

const (
	Left JoinSide = iota
	Right
)

func validJoinSide(s JoinSide) bool {
	switch s {
	case Left, Right:
		return true
	default:
		return false
	}
}

// JoinColumnIndex is one entry of a JoinFilter's column-index vector:
// the position of a column within its own side's schema, tagged with
// which side it came from.
type JoinColumnIndex struct {
	Index int
	Side  JoinSide
}

// JoinFilter is a predicate evaluated against a synthetic row built by
// concatenating selected columns from both join inputs. Its Expr
// references columns of Schema (not of either input schema directly);
// ColumnIndices says, for each position in Schema, which input column
// it was projected from.
type JoinFilter struct {
	Expr          Expr
	ColumnIndices []JoinColumnIndex
	Schema        schema.Schema
}

func (j *JoinFilter) Encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	dst.BeginField(st.Intern("schema"))
	j.Schema.Encode(dst, st)
	dst.BeginField(st.Intern("columnindices"))
	dst.BeginList(len(j.ColumnIndices))
	for _, ci := range j.ColumnIndices {
		dst.BeginStruct(-1)
		dst.BeginField(st.Intern("index"))
		dst.WriteInt(int64(ci.Index))
		dst.BeginField(st.Intern("side"))
		dst.WriteInt(int64(ci.Side))
		dst.EndStruct()
	}
	dst.EndList()
	dst.BeginField(st.Intern("expr"))
	Encode(j.Expr, dst, st)
	dst.EndStruct()
}

// DecodeJoinFilter decodes a JoinFilter. The predicate is parsed
// against the filter's own embedded schema, never the join's left or
// right input schema directly.
func DecodeJoinFilter(st *ion.Symtab, body []byte, reg FunctionRegistry, ext UDFCodec) (*JoinFilter, error) {
	jf := &JoinFilter{}
	var exprBody []byte
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "schema":
			var sch schema.Schema
			sch, _, err = schema.Decode(st, v)
			jf.Schema = sch
		case "columnindices":
			_, err = ion.UnpackList(v, func(item []byte) error {
				var ci JoinColumnIndex
				_, ierr := ion.UnpackStruct(st, item, func(f string, b []byte) error {
					var err error
					switch f {
					case "index":
						var n int64
						n, _, err = ion.ReadInt(b)
						ci.Index = int(n)
					case "side":
						var n int64
						n, _, err = ion.ReadInt(b)
						if err == nil {
							if !validJoinSide(JoinSide(n)) {
								err = perrMalformed("joinfilter: unknown side %d", n)
							} else {
								ci.Side = JoinSide(n)
							}
						}
					}
					return err
				})
				if ierr != nil {
					return ierr
				}
				jf.ColumnIndices = append(jf.ColumnIndices, ci)
				return nil
			})
		case "expr":
			exprBody = v
		}
		return err
	})
	if uerr != nil {
		return nil, uerr
	}
	if err != nil {
		return nil, err
	}
	jf.Expr, err = ParseExpr(st, exprBody, jf.Schema)
	if err != nil {
		return nil, err
	}
	if err := ResolveFuncs(jf.Expr, reg, ext); err != nil {
		return nil, err
	}
	return jf, nil
}

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

// WindowExpr is one window function call inside a Window operator.
type WindowExpr struct {
	Func        string
	Args        []Expr
	PartitionBy []Expr
	OrderBy     []SortExpr
	IgnoreNulls bool
	ReturnType  schema.Type

	udf WindowUDF
}

func (w *WindowExpr) UDF() WindowUDF { return w.udf }

func (w *WindowExpr) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	dst.BeginField(st.Intern("func"))
	dst.WriteString(w.Func)
	dst.BeginField(st.Intern("args"))
	dst.BeginList(len(w.Args))
	for _, e := range w.Args {
		Encode(e, dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("partitionby"))
	dst.BeginList(len(w.PartitionBy))
	for _, e := range w.PartitionBy {
		Encode(e, dst, st)
	}
	dst.EndList()
	if len(w.OrderBy) > 0 {
		dst.BeginField(st.Intern("orderby"))
		EncodeOrdering(dst, st, w.OrderBy)
	}
	dst.BeginField(st.Intern("ignorenulls"))
	dst.WriteBool(w.IgnoreNulls)
	dst.BeginField(st.Intern("returntype"))
	dst.WriteInt(int64(w.ReturnType))
	dst.EndStruct()
}

// EncodeWindowExprs writes the parallel window-function-descriptor
// list of a Window operator.
func EncodeWindowExprs(dst *ion.Buffer, st *ion.Symtab, exprs []*WindowExpr) {
	dst.BeginList(len(exprs))
	for _, w := range exprs {
		w.encode(dst, st)
	}
	dst.EndList()
}

func ParseWindowExprs(st *ion.Symtab, body []byte, sch schema.Schema, reg FunctionRegistry, ext UDFCodec) ([]*WindowExpr, error) {
	var out []*WindowExpr
	_, err := ion.UnpackList(body, func(item []byte) error {
		w, err := parseWindowExpr(st, item, sch, reg, ext)
		if err != nil {
			return err
		}
		out = append(out, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseWindowExpr(st *ion.Symtab, body []byte, sch schema.Schema, reg FunctionRegistry, ext UDFCodec) (*WindowExpr, error) {
	w := &WindowExpr{}
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "func":
			w.Func, _, err = ion.ReadString(v)
		case "args":
			w.Args, err = parseExprList(st, v, sch)
		case "partitionby":
			w.PartitionBy, err = parseExprList(st, v, sch)
		case "orderby":
			w.OrderBy, err = ParseOrderingAllowEmpty(st, v, sch)
		case "ignorenulls":
			w.IgnoreNulls, _, err = ion.ReadBool(v)
		case "returntype":
			var n int64
			n, _, err = ion.ReadInt(v)
			if err == nil {
				if !schema.Type(n).Valid() {
					err = perrMalformed("window: unknown returntype %d", n)
				} else {
					w.ReturnType = schema.Type(n)
				}
			}
		}
		return err
	})
	if uerr != nil {
		return nil, uerr
	}
	if err != nil {
		return nil, err
	}
	for _, arg := range w.Args {
		if err := ResolveFuncs(arg, reg, ext); err != nil {
			return nil, err
		}
	}
	udf, err := ResolveWindow(w.Func, nil, reg, ext)
	if err != nil {
		return nil, err
	}
	w.udf = udf
	return w, nil
}

// InputOrderMode is the streaming-window discriminator: its presence
// on the wire (as opposed to the field being absent) chooses a
// bounded-streaming window operator instead of an unbounded one.
type InputOrderMode struct {
	Kind    InputOrderKind
	Columns []int // meaningful only for PartiallySorted
}

type InputOrderKind int

const (
	Linear InputOrderKind = iota
	PartiallySorted
	Sorted
)

func validInputOrderKind(k InputOrderKind) bool {
	switch k {
	case Linear, PartiallySorted, Sorted:
		return true
	default:
		return false
	}
}

func (m *InputOrderMode) Encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	dst.BeginField(st.Intern("kind"))
	dst.WriteInt(int64(m.Kind))
	dst.BeginField(st.Intern("columns"))
	dst.BeginList(len(m.Columns))
	for _, c := range m.Columns {
		dst.WriteInt(int64(c))
	}
	dst.EndList()
	dst.EndStruct()
}

func DecodeInputOrderMode(st *ion.Symtab, body []byte) (*InputOrderMode, error) {
	m := &InputOrderMode{}
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "kind":
			var n int64
			n, _, err = ion.ReadInt(v)
			if err == nil {
				if !validInputOrderKind(InputOrderKind(n)) {
					err = perrMalformed("inputordermode: unknown kind %d", n)
				} else {
					m.Kind = InputOrderKind(n)
				}
			}
		case "columns":
			_, err = ion.UnpackList(v, func(item []byte) error {
				n, _, err := ion.ReadInt(item)
				if err != nil {
					return err
				}
				m.Columns = append(m.Columns, int(n))
				return nil
			})
		}
		return err
	})
	if uerr != nil {
		return nil, uerr
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

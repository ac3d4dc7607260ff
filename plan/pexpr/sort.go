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
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/schema"
)

// SortExpr is an expression paired with ordering direction, used by
// Sort, SortPreservingMerge, and SymmetricHashJoin's per-side orderings.
type SortExpr struct {
	Expr       Expr
	Descending bool
	NullsFirst bool
}

func (s SortExpr) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	dst.BeginField(st.Intern("expr"))
	Encode(s.Expr, dst, st)
	dst.BeginField(st.Intern("desc"))
	dst.WriteBool(s.Descending)
	dst.BeginField(st.Intern("nullsfirst"))
	dst.WriteBool(s.NullsFirst)
	dst.EndStruct()
}

// EncodeOrdering writes a list of sort expressions. An empty order is
// written as an empty list, which ParseOrdering rejects on decode: the
// wire form has no room to distinguish "no order" from "forgot to set
// the order".
func EncodeOrdering(dst *ion.Buffer, st *ion.Symtab, order []SortExpr) {
	dst.BeginList(len(order))
	for _, o := range order {
		o.encode(dst, st)
	}
	dst.EndList()
}

// ParseOrdering parses a sort-expression list and rejects the empty
// case, per the SortExec/SortPreservingMergeExec requirement that an
// ordering be non-empty.
func ParseOrdering(st *ion.Symtab, body []byte, sch schema.Schema) ([]SortExpr, error) {
	order, err := parseOrderingList(st, body, sch)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, perrors.NewMalformed("SortExec requires an ordering")
	}
	return order, nil
}

// ParseOrderingAllowEmpty is ParseOrdering without the non-empty
// requirement, used where an ordering is genuinely optional (e.g. a
// SymmetricHashJoin side with no sort hint).
func ParseOrderingAllowEmpty(st *ion.Symtab, body []byte, sch schema.Schema) ([]SortExpr, error) {
	return parseOrderingList(st, body, sch)
}

func parseOrderingList(st *ion.Symtab, body []byte, sch schema.Schema) ([]SortExpr, error) {
	var out []SortExpr
	_, err := ion.UnpackList(body, func(item []byte) error {
		var s SortExpr
		var err error
		_, uerr := ion.UnpackStruct(st, item, func(f string, v []byte) error {
			switch f {
			case "expr":
				s.Expr, err = ParseExpr(st, v, sch)
			case "desc":
				s.Descending, _, err = ion.ReadBool(v)
			case "nullsfirst":
				s.NullsFirst, _, err = ion.ReadBool(v)
			}
			return err
		})
		if uerr != nil {
			return uerr
		}
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

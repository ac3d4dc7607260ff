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
	"github.com/sneller/physplan/plan/pexpr"
	"github.com/sneller/physplan/schema"
)

const unbounded = -1

// Sort orders its input by Ordering, which must be non-empty.
type Sort struct {
	nonterminal
	Ordering             []pexpr.SortExpr
	Fetch                int64 // unbounded if -1
	PreservePartitioning bool
}

func (s *Sort) Schema() schema.Schema { return s.input.Schema() }
func (s *Sort) wireTag() string       { return "sort" }

func (s *Sort) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("ordering"))
	pexpr.EncodeOrdering(dst, st, s.Ordering)
	dst.BeginField(st.Intern("fetch"))
	dst.WriteInt(s.Fetch)
	dst.BeginField(st.Intern("preservepartitioning"))
	dst.WriteBool(s.PreservePartitioning)
}

func decodeSort(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "sort")
	if err != nil {
		return nil, err
	}
	s := &Sort{nonterminal: nonterminal{input: child}, Fetch: unbounded}
	var orderingBody []byte
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		var err error
		switch f {
		case "ordering":
			orderingBody = v
		case "fetch":
			s.Fetch, _, err = ion.ReadInt(v)
		case "preservepartitioning":
			s.PreservePartitioning, _, err = ion.ReadBool(v)
		}
		return err
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("sort", uerr)
	}
	s.Ordering, err = pexpr.ParseOrdering(st, orderingBody, child.Schema())
	if err != nil {
		return nil, err
	}
	for _, o := range s.Ordering {
		if err := pexpr.ResolveFuncs(o.Expr, reg, ext); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SortPreservingMerge merges already-sorted input partitions,
// preserving Ordering. Like Sort, Ordering must be non-empty.
type SortPreservingMerge struct {
	nonterminal
	Ordering []pexpr.SortExpr
	Fetch    int64
}

func (s *SortPreservingMerge) Schema() schema.Schema { return s.input.Schema() }
func (s *SortPreservingMerge) wireTag() string       { return "sortpreservingmerge" }

func (s *SortPreservingMerge) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("ordering"))
	pexpr.EncodeOrdering(dst, st, s.Ordering)
	dst.BeginField(st.Intern("fetch"))
	dst.WriteInt(s.Fetch)
}

func decodeSortPreservingMerge(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "sortpreservingmerge")
	if err != nil {
		return nil, err
	}
	s := &SortPreservingMerge{nonterminal: nonterminal{input: child}, Fetch: unbounded}
	var orderingBody []byte
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		var err error
		switch f {
		case "ordering":
			orderingBody = v
		case "fetch":
			s.Fetch, _, err = ion.ReadInt(v)
		}
		return err
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("sortpreservingmerge", uerr)
	}
	s.Ordering, err = pexpr.ParseOrdering(st, orderingBody, child.Schema())
	if err != nil {
		return nil, err
	}
	for _, o := range s.Ordering {
		if err := pexpr.ResolveFuncs(o.Expr, reg, ext); err != nil {
			return nil, err
		}
	}
	return s, nil
}

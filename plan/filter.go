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
	"fmt"

	"github.com/sneller/physplan/ion"
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/plan/pexpr"
	"github.com/sneller/physplan/schema"
)

// Filter evaluates Predicate over each input row and keeps only the
// rows for which it is true. Projection, when present, is applied
// before Predicate is evaluated: Predicate's column indices address
// the projected schema, not the raw child schema.
type Filter struct {
	nonterminal
	Predicate          pexpr.Expr
	Projection         []int // nil means "no projection"
	DefaultSelectivity uint8 // percent in [0,100]
}

func (f *Filter) projectedSchema() schema.Schema {
	child := f.input.Schema()
	if f.Projection == nil {
		return child
	}
	sch, err := child.Project(f.Projection)
	if err != nil {
		// constructors are expected to validate; a bad projection
		// surviving to here means the caller built an invalid Filter.
		panic(err)
	}
	return sch
}

func (f *Filter) Schema() schema.Schema { return f.projectedSchema() }

func (f *Filter) wireTag() string { return "filter" }

func (f *Filter) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("predicate"))
	pexpr.Encode(f.Predicate, dst, st)
	if f.Projection != nil {
		dst.BeginField(st.Intern("projection"))
		dst.BeginList(len(f.Projection))
		for _, idx := range f.Projection {
			dst.WriteInt(int64(idx))
		}
		dst.EndList()
	}
	dst.BeginField(st.Intern("defaultselectivity"))
	dst.WriteInt(int64(f.DefaultSelectivity))
}

func decodeFilter(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "filter")
	if err != nil {
		return nil, err
	}
	f := &Filter{nonterminal: nonterminal{input: child}}
	var predicateBody []byte
	var haveSelectivity bool
	_, uerr := ion.UnpackStruct(st, body, func(name string, v []byte) error {
		var err error
		switch name {
		case "predicate":
			predicateBody = v
		case "projection":
			_, err = ion.UnpackList(v, func(item []byte) error {
				n, _, err := ion.ReadInt(item)
				if err != nil {
					return err
				}
				f.Projection = append(f.Projection, int(n))
				return nil
			})
			if f.Projection == nil {
				f.Projection = []int{}
			}
		case "defaultselectivity":
			var n int64
			n, _, err = ion.ReadInt(v)
			f.DefaultSelectivity = uint8(n)
			haveSelectivity = true
		}
		return err
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("filter", uerr)
	}
	if !haveSelectivity {
		return nil, perrors.NewMalformed("filter: missing defaultselectivity")
	}
	if f.DefaultSelectivity > 100 {
		return nil, perrors.NewMalformed(fmt.Sprintf("filter: default_filter_selectivity %d out of range [0,100]", f.DefaultSelectivity))
	}
	if predicateBody == nil {
		return nil, perrors.NewMalformed("filter: missing predicate")
	}
	// project first, then parse, so the predicate is always parsed
	// against the projected schema when a projection is present.
	predSchema := child.Schema()
	if f.Projection != nil {
		predSchema, err = predSchema.Project(f.Projection)
		if err != nil {
			return nil, perrors.WrapMalformed("filter projection", err)
		}
	}
	f.Predicate, err = pexpr.ParseExpr(st, predicateBody, predSchema)
	if err != nil {
		return nil, err
	}
	if err := pexpr.ResolveFuncs(f.Predicate, reg, ext); err != nil {
		return nil, err
	}
	return f, nil
}

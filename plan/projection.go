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
	"github.com/sneller/physplan/plan/pexpr"
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/schema"
)

// Projection evaluates a parallel (expr, name) pair for each output
// column, against the child's schema.
type Projection struct {
	nonterminal
	Exprs []pexpr.Expr
	Names []string
}

func (p *Projection) Schema() schema.Schema {
	childSchema := p.input.Schema()
	out := make(schema.Schema, len(p.Exprs))
	for i := range p.Exprs {
		out[i] = schema.Field{
			Name:     p.Names[i],
			Type:     pexpr.ResultType(p.Exprs[i], childSchema),
			Nullable: true,
		}
	}
	return out
}

func (p *Projection) wireTag() string { return "projection" }

func (p *Projection) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("exprs"))
	dst.BeginList(len(p.Exprs))
	for _, e := range p.Exprs {
		pexpr.Encode(e, dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("names"))
	dst.BeginList(len(p.Names))
	for _, n := range p.Names {
		dst.WriteString(n)
	}
	dst.EndList()
}

func decodeProjection(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "projection")
	if err != nil {
		return nil, err
	}
	sch := child.Schema()
	p := &Projection{nonterminal: nonterminal{input: child}}
	var exprBodies [][]byte
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "exprs":
			return firstPass(v, &exprBodies)
		case "names":
			_, err := ion.UnpackList(v, func(item []byte) error {
				s, _, err := ion.ReadString(item)
				if err != nil {
					return err
				}
				p.Names = append(p.Names, s)
				return nil
			})
			return err
		}
		return nil
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("projection", uerr)
	}
	if len(exprBodies) != len(p.Names) {
		return nil, perrors.NewMalformed(fmt.Sprintf("projection: exprs/names length mismatch (%d != %d)", len(exprBodies), len(p.Names)))
	}
	for _, eb := range exprBodies {
		e, err := pexpr.ParseExpr(st, eb, sch)
		if err != nil {
			return nil, err
		}
		if err := pexpr.ResolveFuncs(e, reg, ext); err != nil {
			return nil, err
		}
		p.Exprs = append(p.Exprs, e)
	}
	return p, nil
}

// firstPass collects the raw bytes of each list item without parsing
// them, so a caller can first see how many there are (to validate
// against a parallel array) before doing the real, schema-threaded
// parse.
func firstPass(body []byte, out *[][]byte) error {
	_, err := ion.UnpackList(body, func(item []byte) error {
		*out = append(*out, item)
		return nil
	})
	return err
}

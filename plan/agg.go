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

// AggregateMode says which stage of a (possibly partitioned)
// aggregation pipeline this node performs.
type AggregateMode int

const (
	Partial AggregateMode = iota
	FinalAgg
	FinalPartitioned
	Single
	SinglePartitioned
)

// GroupExpr is one entry of an Aggregate's parallel group-by arrays: an
// expression to group by, its output name, and the expression (if any)
// used to decide whether this group's value should read as null for a
// given grouping set.
type GroupExpr struct {
	Expr     pexpr.Expr
	Name     string
	NullExpr pexpr.Expr // optional
}

// Aggregate groups its input by GroupExprs and computes Aggregates
// within each group. Groups, when non-nil, names one or more grouping
// sets: Groups[i][j] says whether GroupExprs[j] participates in
// grouping set i (ROLLUP/CUBE/GROUPING SETS). A nil Groups means the
// plain single grouping set over all of GroupExprs.
type Aggregate struct {
	nonterminal
	Mode        AggregateMode
	GroupExprs  []GroupExpr
	Groups      [][]bool
	Aggregates  []*pexpr.AggregateExpr
	InputSchema schema.Schema
	Limit       int64 // unbounded if -1
}

func (a *Aggregate) Schema() schema.Schema {
	out := make(schema.Schema, 0, len(a.GroupExprs)+len(a.Aggregates))
	childSchema := a.input.Schema()
	for _, g := range a.GroupExprs {
		out = append(out, schema.Field{
			Name:     g.Name,
			Type:     pexpr.ResultType(g.Expr, childSchema),
			Nullable: true,
		})
	}
	for _, agg := range a.Aggregates {
		out = append(out, schema.Field{
			Name:     agg.Func,
			Type:     agg.ReturnType,
			Nullable: true,
		})
	}
	return out
}

func (a *Aggregate) wireTag() string { return "aggregate" }

func (a *Aggregate) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("mode"))
	dst.WriteInt(int64(a.Mode))

	dst.BeginField(st.Intern("groupexprs"))
	dst.BeginList(len(a.GroupExprs))
	for _, g := range a.GroupExprs {
		pexpr.Encode(g.Expr, dst, st)
	}
	dst.EndList()

	dst.BeginField(st.Intern("groupnames"))
	dst.BeginList(len(a.GroupExprs))
	for _, g := range a.GroupExprs {
		dst.WriteString(g.Name)
	}
	dst.EndList()

	dst.BeginField(st.Intern("groupnullexprs"))
	dst.BeginList(len(a.GroupExprs))
	for _, g := range a.GroupExprs {
		if g.NullExpr != nil {
			pexpr.Encode(g.NullExpr, dst, st)
		} else {
			dst.WriteNull()
		}
	}
	dst.EndList()

	if a.Groups != nil {
		width := len(a.GroupExprs)
		dst.BeginField(st.Intern("groups"))
		dst.BeginList(len(a.Groups) * width)
		for _, row := range a.Groups {
			for _, bit := range row {
				dst.WriteBool(bit)
			}
		}
		dst.EndList()
	}

	dst.BeginField(st.Intern("aggregates"))
	pexpr.EncodeAggregateExprs(dst, st, a.Aggregates)

	dst.BeginField(st.Intern("inputschema"))
	a.InputSchema.Encode(dst, st)

	dst.BeginField(st.Intern("limit"))
	dst.WriteInt(a.Limit)
}

func decodeAggregate(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "aggregate")
	if err != nil {
		return nil, err
	}
	a := &Aggregate{nonterminal: nonterminal{input: child}, Limit: unbounded}

	var groupExprsBody, groupNamesBody, groupNullExprsBody, groupsBody, aggregatesBody, inputSchemaBody []byte
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "mode":
			var n int64
			n, _, err2 = ion.ReadInt(v)
			if err2 == nil {
				switch AggregateMode(n) {
				case Partial, FinalAgg, FinalPartitioned, Single, SinglePartitioned:
					a.Mode = AggregateMode(n)
				default:
					err2 = perrors.NewMalformed(fmt.Sprintf("aggregate: unknown mode %d", n))
				}
			}
		case "groupexprs":
			groupExprsBody = v
		case "groupnames":
			groupNamesBody = v
		case "groupnullexprs":
			groupNullExprsBody = v
		case "groups":
			groupsBody = v
		case "aggregates":
			aggregatesBody = v
		case "inputschema":
			inputSchemaBody = v
		case "limit":
			a.Limit, _, err2 = ion.ReadInt(v)
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("aggregate", uerr)
	}
	if inputSchemaBody == nil {
		return nil, perrors.NewMalformed("aggregate: missing inputschema")
	}
	a.InputSchema, _, err = schema.Decode(st, inputSchemaBody)
	if err != nil {
		return nil, err
	}

	var groupExprItems, groupNullExprItems [][]byte
	if groupExprsBody != nil {
		if err := firstPass(groupExprsBody, &groupExprItems); err != nil {
			return nil, perrors.WrapMalformed("aggregate.groupexprs", err)
		}
	}
	var names []string
	if groupNamesBody != nil {
		_, uerr := ion.UnpackList(groupNamesBody, func(item []byte) error {
			s, _, err := ion.ReadString(item)
			if err != nil {
				return err
			}
			names = append(names, s)
			return nil
		})
		if uerr != nil {
			return nil, perrors.WrapMalformed("aggregate.groupnames", uerr)
		}
	}
	if len(groupExprItems) != len(names) {
		return nil, perrors.NewMalformed(fmt.Sprintf("aggregate: groupexprs/groupnames length mismatch (%d != %d)", len(groupExprItems), len(names)))
	}
	if groupNullExprsBody != nil {
		if err := firstPass(groupNullExprsBody, &groupNullExprItems); err != nil {
			return nil, perrors.WrapMalformed("aggregate.groupnullexprs", err)
		}
		if len(groupNullExprItems) != len(names) {
			return nil, perrors.NewMalformed(fmt.Sprintf("aggregate: groupnullexprs/groupnames length mismatch (%d != %d)", len(groupNullExprItems), len(names)))
		}
	}

	a.GroupExprs = make([]GroupExpr, len(names))
	for i, name := range names {
		e, err := pexpr.ParseExpr(st, groupExprItems[i], child.Schema())
		if err != nil {
			return nil, err
		}
		if err := pexpr.ResolveFuncs(e, reg, ext); err != nil {
			return nil, err
		}
		a.GroupExprs[i] = GroupExpr{Expr: e, Name: name}
		if groupNullExprItems != nil {
			item := groupNullExprItems[i]
			if !isIonNull(item) {
				ne, err := pexpr.ParseExpr(st, item, child.Schema())
				if err != nil {
					return nil, err
				}
				if err := pexpr.ResolveFuncs(ne, reg, ext); err != nil {
					return nil, err
				}
				a.GroupExprs[i].NullExpr = ne
			}
		}
	}

	if groupsBody != nil {
		var flat []bool
		_, uerr := ion.UnpackList(groupsBody, func(item []byte) error {
			b, _, err := ion.ReadBool(item)
			if err != nil {
				return err
			}
			flat = append(flat, b)
			return nil
		})
		if uerr != nil {
			return nil, perrors.WrapMalformed("aggregate.groups", uerr)
		}
		width := len(a.GroupExprs)
		if width == 0 || len(flat)%width != 0 {
			return nil, perrors.NewMalformed(fmt.Sprintf("aggregate: groups bit-matrix length %d not a multiple of width %d", len(flat), width))
		}
		rows := len(flat) / width
		a.Groups = make([][]bool, rows)
		for i := 0; i < rows; i++ {
			a.Groups[i] = flat[i*width : (i+1)*width]
		}
	}

	if aggregatesBody != nil {
		a.Aggregates, err = pexpr.ParseAggregateExprs(st, aggregatesBody, child.Schema(), reg, ext)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

func isIonNull(body []byte) bool {
	return len(body) > 0 && body[0]&0x0f == 0x0f
}

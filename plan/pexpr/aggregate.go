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

// AggregateExpr is one aggregate function call inside an Aggregate
// operator: a function reference plus the ordering/distinct/filter
// modifiers DataFusion-style aggregate expressions carry.
type AggregateExpr struct {
	Func       string
	Args       []Expr
	Distinct   bool
	Filter     Expr // optional per-aggregate FILTER (...)
	OrderBy    []SortExpr
	ReturnType schema.Type

	udf AggregateUDF
}

func (a *AggregateExpr) UDF() AggregateUDF { return a.udf }

func (a *AggregateExpr) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	dst.BeginField(st.Intern("func"))
	dst.WriteString(a.Func)
	dst.BeginField(st.Intern("args"))
	dst.BeginList(len(a.Args))
	for _, e := range a.Args {
		Encode(e, dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("distinct"))
	dst.WriteBool(a.Distinct)
	if a.Filter != nil {
		dst.BeginField(st.Intern("filter"))
		Encode(a.Filter, dst, st)
	}
	if len(a.OrderBy) > 0 {
		dst.BeginField(st.Intern("orderby"))
		EncodeOrdering(dst, st, a.OrderBy)
	}
	dst.BeginField(st.Intern("returntype"))
	dst.WriteInt(int64(a.ReturnType))
	dst.EndStruct()
}

// EncodeAggregateExprs writes the parallel aggregate-function-descriptor
// list of an Aggregate operator.
func EncodeAggregateExprs(dst *ion.Buffer, st *ion.Symtab, aggs []*AggregateExpr) {
	dst.BeginList(len(aggs))
	for _, a := range aggs {
		a.encode(dst, st)
	}
	dst.EndList()
}

// ParseAggregateExprs parses the parallel aggregate-function-descriptor
// list of an Aggregate operator, resolving each function's UDF via the
// two-step registry/extension fallback.
func ParseAggregateExprs(st *ion.Symtab, body []byte, sch schema.Schema, reg FunctionRegistry, ext UDFCodec) ([]*AggregateExpr, error) {
	var out []*AggregateExpr
	_, err := ion.UnpackList(body, func(item []byte) error {
		a, err := parseAggregateExpr(st, item, sch, reg, ext)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseAggregateExpr(st *ion.Symtab, body []byte, sch schema.Schema, reg FunctionRegistry, ext UDFCodec) (*AggregateExpr, error) {
	a := &AggregateExpr{}
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "func":
			a.Func, _, err = ion.ReadString(v)
		case "args":
			a.Args, err = parseExprList(st, v, sch)
		case "distinct":
			a.Distinct, _, err = ion.ReadBool(v)
		case "filter":
			a.Filter, err = ParseExpr(st, v, sch)
		case "orderby":
			a.OrderBy, err = ParseOrderingAllowEmpty(st, v, sch)
		case "returntype":
			var n int64
			n, _, err = ion.ReadInt(v)
			if err == nil {
				if !schema.Type(n).Valid() {
					err = perrMalformed("aggregateexpr: unknown returntype %d", n)
				} else {
					a.ReturnType = schema.Type(n)
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
	for _, arg := range a.Args {
		if err := ResolveFuncs(arg, reg, ext); err != nil {
			return nil, err
		}
	}
	udf, err := ResolveAggregate(a.Func, nil, reg, ext)
	if err != nil {
		return nil, err
	}
	a.udf = udf
	return a, nil
}

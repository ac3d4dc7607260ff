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

// ResultType derives the logical type an expression produces when
// evaluated against sch, so that operators deriving their own output
// schema (Projection, and Aggregate's group-by columns) don't need
// their own copy of this switch.
func ResultType(e Expr, sch schema.Schema) schema.Type {
	switch n := e.(type) {
	case *Column:
		if n.Index >= 0 && n.Index < len(sch) {
			return sch[n.Index].Type
		}
		return schema.Invalid
	case *Literal:
		return literalType(n.Value)
	case *Not, *IsNull:
		return schema.Boolean
	case *Negative:
		return ResultType(n.Arg, sch)
	case *Binary:
		switch n.Op {
		case OpEq, OpNotEq, OpLt, OpLtEq, OpGt, OpGtEq, OpAnd, OpOr:
			return schema.Boolean
		default:
			return ResultType(n.Left, sch)
		}
	case *Cast:
		return n.To
	case *TryCast:
		return n.To
	case *InList, *Like:
		return schema.Boolean
	case *Case:
		if len(n.Arms) > 0 {
			return ResultType(n.Arms[0].Then, sch)
		}
		return schema.Invalid
	case *ScalarFunc:
		return n.ReturnType
	default:
		return schema.Invalid
	}
}

func literalType(v ion.Datum) schema.Type {
	switch v.Type() {
	case ion.BoolType:
		return schema.Boolean
	case ion.IntType, ion.UintType:
		return schema.Int64
	case ion.FloatType:
		return schema.Float64
	case ion.StringType, ion.SymbolType:
		return schema.Utf8
	case ion.BlobType:
		return schema.Binary
	case ion.TimestampType:
		return schema.Timestamp
	case ion.ListType:
		return schema.List
	case ion.StructType:
		return schema.Struct
	default:
		return schema.Invalid
	}
}

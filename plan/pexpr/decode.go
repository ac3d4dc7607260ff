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
	"fmt"

	"github.com/sneller/physplan/ion"
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/schema"
)

// ParseExpr parses a single expression from body against sch. sch
// must be the schema of the already-reconstructed child (or the
// projected slice thereof, for Filter predicates; a Parquet scan's
// predicate is parsed against the scan's output schema), never the
// schema the encoder originally saw.
func ParseExpr(st *ion.Symtab, body []byte, sch schema.Schema) (Expr, error) {
	var typename string
	_, err := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		if f != "type" {
			return nil
		}
		sym, _, err := ion.ReadSymbol(v)
		if err != nil {
			return err
		}
		name, ok := st.Lookup(sym)
		if !ok {
			return fmt.Errorf("symbol %d not found in symbol table", sym)
		}
		typename = name
		return nil
	})
	if err != nil {
		return nil, perrors.WrapMalformed("expr", err)
	}
	if typename == "" {
		return nil, perrors.NewMalformed("expr: missing \"type\" field")
	}
	return parseByType(typename, st, body, sch)
}

// parseByType re-walks the struct fields now that the type is known,
// since UnpackStruct only hands us field bodies one at a time
// and most node kinds need more than one field to build their Expr.
func parseByType(typename string, st *ion.Symtab, body []byte, sch schema.Schema) (Expr, error) {
	switch typename {
	case "column":
		var idx int
		var name string
		_, err := ion.UnpackStruct(st, body, func(f string, v []byte) error {
			var err error
			switch f {
			case "index":
				var n int64
				n, _, err = ion.ReadInt(v)
				idx = int(n)
			case "name":
				name, _, err = ion.ReadString(v)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := checkColumn(idx, name, sch); err != nil {
			return nil, err
		}
		return &Column{Index: idx, Name: name}, nil
	case "literal":
		var val ion.Datum
		_, err := ion.UnpackStruct(st, body, func(f string, v []byte) error {
			if f != "value" {
				return nil
			}
			d, _, err := ion.ReadDatum(st, v)
			val = d
			return err
		})
		if err != nil {
			return nil, err
		}
		return &Literal{Value: val}, nil
	case "not":
		arg, err := subExpr(st, body, "arg", sch)
		if err != nil {
			return nil, err
		}
		return &Not{Arg: arg}, nil
	case "isnull":
		arg, err := subExpr(st, body, "arg", sch)
		if err != nil {
			return nil, err
		}
		neg, err := boolField(st, body, "negated")
		if err != nil {
			return nil, err
		}
		return &IsNull{Arg: arg, Negated: neg}, nil
	case "negative":
		arg, err := subExpr(st, body, "arg", sch)
		if err != nil {
			return nil, err
		}
		return &Negative{Arg: arg}, nil
	case "binary":
		var opname string
		var left, right Expr
		var err error
		_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
			switch f {
			case "op":
				opname, _, err = ion.ReadString(v)
			case "left":
				left, err = ParseExpr(st, v, sch)
			case "right":
				right, err = ParseExpr(st, v, sch)
			}
			return err
		})
		if uerr != nil {
			return nil, uerr
		}
		if err != nil {
			return nil, err
		}
		op, ok := binaryOpValues[opname]
		if !ok {
			return nil, perrMalformed("binary: unknown operator %q", opname)
		}
		return &Binary{Op: op, Left: left, Right: right}, nil
	case "cast", "trycast":
		arg, err := subExpr(st, body, "arg", sch)
		if err != nil {
			return nil, err
		}
		to, err := intField(st, body, "to")
		if err != nil {
			return nil, err
		}
		if !schema.Type(to).Valid() {
			return nil, perrMalformed("%s: unknown target type %d", typename, to)
		}
		if typename == "cast" {
			return &Cast{Arg: arg, To: schema.Type(to)}, nil
		}
		return &TryCast{Arg: arg, To: schema.Type(to)}, nil
	case "inlist":
		arg, err := subExpr(st, body, "arg", sch)
		if err != nil {
			return nil, err
		}
		list, err := subExprList(st, body, "list", sch)
		if err != nil {
			return nil, err
		}
		neg, err := boolField(st, body, "negated")
		if err != nil {
			return nil, err
		}
		return &InList{Arg: arg, List: list, Negated: neg}, nil
	case "like":
		arg, err := subExpr(st, body, "arg", sch)
		if err != nil {
			return nil, err
		}
		pattern, err := subExpr(st, body, "pattern", sch)
		if err != nil {
			return nil, err
		}
		ci, err := boolField(st, body, "caseinsensitive")
		if err != nil {
			return nil, err
		}
		neg, err := boolField(st, body, "negated")
		if err != nil {
			return nil, err
		}
		return &Like{Arg: arg, Pattern: pattern, CaseInsensitive: ci, Negated: neg}, nil
	case "case":
		var c Case
		whens, err := subExprListOptional(st, body, "when", sch)
		if err != nil {
			return nil, err
		}
		thens, err := subExprListOptional(st, body, "then", sch)
		if err != nil {
			return nil, err
		}
		if len(whens) != len(thens) {
			return nil, perrMalformed("case: when/then length mismatch (%d != %d)", len(whens), len(thens))
		}
		for i := range whens {
			c.Arms = append(c.Arms, WhenThen{When: whens[i], Then: thens[i]})
		}
		if e, err := subExprOptional(st, body, "expr", sch); err != nil {
			return nil, err
		} else {
			c.Expr = e
		}
		if e, err := subExprOptional(st, body, "else", sch); err != nil {
			return nil, err
		} else {
			c.Else = e
		}
		return &c, nil
	case "scalarfunc":
		var name string
		var args []Expr
		var ret int64
		var err error
		_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
			switch f {
			case "name":
				name, _, err = ion.ReadString(v)
			case "args":
				args, err = parseExprList(st, v, sch)
			case "returntype":
				ret, _, err = ion.ReadInt(v)
			}
			return err
		})
		if uerr != nil {
			return nil, uerr
		}
		if err != nil {
			return nil, err
		}
		if !schema.Type(ret).Valid() {
			return nil, perrMalformed("scalarfunc: unknown returntype %d", ret)
		}
		return &ScalarFunc{Name: name, Args: args, ReturnType: schema.Type(ret)}, nil
	default:
		return nil, perrMalformed("unrecognized expression type %q", typename)
	}
}

func subExpr(st *ion.Symtab, body []byte, field string, sch schema.Schema) (Expr, error) {
	e, err := subExprOptional(st, body, field, sch)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, perrMalformed("missing required field %q", field)
	}
	return e, nil
}

func subExprOptional(st *ion.Symtab, body []byte, field string, sch schema.Schema) (Expr, error) {
	var e Expr
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		if f != field {
			return nil
		}
		e, err = ParseExpr(st, v, sch)
		return err
	})
	if uerr != nil {
		return nil, uerr
	}
	return e, err
}

func subExprList(st *ion.Symtab, body []byte, field string, sch schema.Schema) ([]Expr, error) {
	list, err := subExprListOptional(st, body, field, sch)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, perrMalformed("missing required field %q", field)
	}
	return list, nil
}

func subExprListOptional(st *ion.Symtab, body []byte, field string, sch schema.Schema) ([]Expr, error) {
	var list []Expr
	var err error
	found := false
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		if f != field {
			return nil
		}
		found = true
		list, err = parseExprList(st, v, sch)
		return err
	})
	if uerr != nil {
		return nil, uerr
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if list == nil {
		list = []Expr{}
	}
	return list, nil
}

func parseExprList(st *ion.Symtab, body []byte, sch schema.Schema) ([]Expr, error) {
	var out []Expr
	_, err := ion.UnpackList(body, func(item []byte) error {
		e, err := ParseExpr(st, item, sch)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func boolField(st *ion.Symtab, body []byte, field string) (bool, error) {
	var v bool
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, b []byte) error {
		if f != field {
			return nil
		}
		v, _, err = ion.ReadBool(b)
		return err
	})
	if uerr != nil {
		return false, uerr
	}
	return v, err
}

func intField(st *ion.Symtab, body []byte, field string) (int64, error) {
	var v int64
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, b []byte) error {
		if f != field {
			return nil
		}
		v, _, err = ion.ReadInt(b)
		return err
	})
	if uerr != nil {
		return 0, uerr
	}
	return v, err
}

func perrMalformed(format string, args ...interface{}) error {
	return perrors.NewMalformed(fmt.Sprintf(format, args...))
}

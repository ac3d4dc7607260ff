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

// ResolveFuncs walks e and resolves every ScalarFunc's UDF using the
// two-step fallback (registry, then extension codec). It is a
// separate pass from ParseExpr so that structural, schema-threaded
// parsing never needs a registry or extension codec in hand; callers
// that care about UDF resolution (Projection, Filter, Aggregate,
// Window operator decoders) run it once after parsing.
func ResolveFuncs(e Expr, reg FunctionRegistry, ext UDFCodec) error {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *Column, *Literal:
	case *Not:
		return ResolveFuncs(n.Arg, reg, ext)
	case *IsNull:
		return ResolveFuncs(n.Arg, reg, ext)
	case *Negative:
		return ResolveFuncs(n.Arg, reg, ext)
	case *Binary:
		if err := ResolveFuncs(n.Left, reg, ext); err != nil {
			return err
		}
		return ResolveFuncs(n.Right, reg, ext)
	case *Cast:
		return ResolveFuncs(n.Arg, reg, ext)
	case *TryCast:
		return ResolveFuncs(n.Arg, reg, ext)
	case *InList:
		if err := ResolveFuncs(n.Arg, reg, ext); err != nil {
			return err
		}
		for _, a := range n.List {
			if err := ResolveFuncs(a, reg, ext); err != nil {
				return err
			}
		}
	case *Like:
		if err := ResolveFuncs(n.Arg, reg, ext); err != nil {
			return err
		}
		return ResolveFuncs(n.Pattern, reg, ext)
	case *Case:
		if err := ResolveFuncs(n.Expr, reg, ext); err != nil {
			return err
		}
		for _, a := range n.Arms {
			if err := ResolveFuncs(a.When, reg, ext); err != nil {
				return err
			}
			if err := ResolveFuncs(a.Then, reg, ext); err != nil {
				return err
			}
		}
		return ResolveFuncs(n.Else, reg, ext)
	case *ScalarFunc:
		for _, a := range n.Args {
			if err := ResolveFuncs(a, reg, ext); err != nil {
				return err
			}
		}
		udf, err := ResolveScalar(n.Name, nil, reg, ext)
		if err != nil {
			return err
		}
		n.udf = udf
	}
	return nil
}

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
	"errors"
	"testing"

	"github.com/sneller/physplan/ion"
	"github.com/sneller/physplan/plan/perrors"
)

// TestAggregateExprRoundTrip grounds the basic count(*)-style aggregate
// descriptor: no args, no filter, a declared return type, with "count"
// resolved through the function registry.
func TestAggregateExprRoundTrip(t *testing.T) {
	a := &AggregateExpr{Func: "count", ReturnType: 5}
	var buf ion.Buffer
	var st ion.Symtab
	a.encode(&buf, &st)

	out, err := ParseAggregateExprs(&st, wrapList(&buf), testSchema, countRegistry{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Func != "count" || out[0].ReturnType != 5 {
		t.Fatalf("got %+v", out)
	}
}

func TestAggregateExprUnknownReturnTypeIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	buf.BeginField(st.Intern("func"))
	buf.WriteString("sum")
	buf.BeginField(st.Intern("args"))
	buf.BeginList(0)
	buf.EndList()
	buf.BeginField(st.Intern("distinct"))
	buf.WriteBool(false)
	buf.BeginField(st.Intern("returntype"))
	buf.WriteInt(99)
	buf.EndStruct()

	_, err := ParseAggregateExprs(&st, wrapList(&buf), testSchema, nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown aggregate returntype")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

// countRegistry is a FunctionRegistry that knows only the "count"
// aggregate.
type countRegistry struct{}

type namedUDF string

func (n namedUDF) Name() string { return string(n) }

func (countRegistry) ScalarUDF(string) (ScalarUDF, bool) { return nil, false }

func (countRegistry) AggregateUDF(name string) (AggregateUDF, bool) {
	if name == "count" {
		return namedUDF(name), true
	}
	return nil, false
}

func (countRegistry) WindowUDF(string) (WindowUDF, bool) { return nil, false }

// wrapList wraps a single already-encoded struct in a one-element ion
// list, since ParseAggregateExprs expects the parallel descriptor list
// an Aggregate operator carries rather than a bare struct.
func wrapList(body *ion.Buffer) []byte {
	var out ion.Buffer
	out.BeginList(1)
	out.UnsafeAppend(body.Bytes())
	out.EndList()
	return out.Bytes()
}

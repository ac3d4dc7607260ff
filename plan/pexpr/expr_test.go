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
	"github.com/sneller/physplan/schema"
)

var testSchema = schema.Schema{
	{Name: "a", Type: schema.Int64},
	{Name: "b", Type: schema.Utf8},
}

func roundTrip(t *testing.T, e Expr, sch schema.Schema) Expr {
	t.Helper()
	var buf ion.Buffer
	var st ion.Symtab
	Encode(e, &buf, &st)
	out, err := ParseExpr(&st, buf.Bytes(), sch)
	if err != nil {
		t.Fatalf("ParseExpr: %s", err)
	}
	return out
}

func TestColumnRoundTrip(t *testing.T) {
	c := &Column{Index: 1, Name: "b"}
	out := roundTrip(t, c, testSchema)
	got, ok := out.(*Column)
	if !ok {
		t.Fatalf("got %T, want *Column", out)
	}
	if got.Index != 1 || got.Name != "b" {
		t.Fatalf("got %+v", got)
	}
}

func TestColumnOutOfRange(t *testing.T) {
	c := &Column{Index: 5, Name: "nope"}
	var buf ion.Buffer
	var st ion.Symtab
	Encode(c, &buf, &st)
	if _, err := ParseExpr(&st, buf.Bytes(), testSchema); err == nil {
		t.Fatal("expected error for out-of-range column index")
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	l := &Literal{Value: ion.Int(42)}
	out := roundTrip(t, l, testSchema)
	got, ok := out.(*Literal)
	if !ok {
		t.Fatalf("got %T, want *Literal", out)
	}
	if !got.Value.Equal(l.Value) {
		t.Fatalf("got %v, want %v", got.Value, l.Value)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	b := &Binary{
		Op:    OpEq,
		Left:  &Column{Index: 0, Name: "a"},
		Right: &Literal{Value: ion.Int(1)},
	}
	out := roundTrip(t, b, testSchema)
	got, ok := out.(*Binary)
	if !ok {
		t.Fatalf("got %T, want *Binary", out)
	}
	if got.Op != OpEq {
		t.Fatalf("got op %v, want OpEq", got.Op)
	}
}

func TestCaseRoundTrip(t *testing.T) {
	c := &Case{
		Arms: []WhenThen{
			{When: &Binary{Op: OpGt, Left: &Column{Index: 0, Name: "a"}, Right: &Literal{Value: ion.Int(0)}}, Then: &Literal{Value: ion.String("pos")}},
		},
		Else: &Literal{Value: ion.String("non-pos")},
	}
	out := roundTrip(t, c, testSchema)
	got, ok := out.(*Case)
	if !ok {
		t.Fatalf("got %T, want *Case", out)
	}
	if len(got.Arms) != 1 || got.Else == nil {
		t.Fatalf("got %+v", got)
	}
}

func TestCastUnknownTargetTypeIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	settype("cast", &buf, &st)
	buf.BeginField(st.Intern("arg"))
	(&Column{Index: 0, Name: "a"}).encode(&buf, &st)
	buf.BeginField(st.Intern("to"))
	buf.WriteInt(99)
	buf.EndStruct()
	_, err := ParseExpr(&st, buf.Bytes(), testSchema)
	if err == nil {
		t.Fatal("expected error for unknown cast target type")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

func TestScalarFuncUnknownReturnTypeIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	settype("scalarfunc", &buf, &st)
	buf.BeginField(st.Intern("name"))
	buf.WriteString("upper")
	buf.BeginField(st.Intern("args"))
	buf.BeginList(0)
	buf.EndList()
	buf.BeginField(st.Intern("returntype"))
	buf.WriteInt(99)
	buf.EndStruct()
	_, err := ParseExpr(&st, buf.Bytes(), testSchema)
	if err == nil {
		t.Fatal("expected error for unknown scalarfunc returntype")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

func TestUnrecognizedTypeIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	settype("bogus", &buf, &st)
	buf.EndStruct()
	_, err := ParseExpr(&st, buf.Bytes(), testSchema)
	if err == nil {
		t.Fatal("expected error for unrecognized expression type")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

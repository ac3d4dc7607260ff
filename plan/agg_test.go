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
	"errors"
	"testing"

	"github.com/sneller/physplan/ion"
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/plan/pexpr"
)

// TestAggregateGroupingSetsRoundTrip grounds the grouping-sets
// bit-matrix scenario: Groups = [[true,false],[false,true],[true,true]]
// flattens to [t,f,f,t,t,t] on the wire (width 2) and must reshape
// back to the same rows on decode.
func TestAggregateGroupingSetsRoundTrip(t *testing.T) {
	child := &Empty{Sch: testChildSchema}
	a := &Aggregate{
		nonterminal: nonterminal{input: child},
		Mode:        Single,
		GroupExprs: []GroupExpr{
			{Expr: &pexpr.Column{Index: 0, Name: "a"}, Name: "a"},
			{Expr: &pexpr.Column{Index: 1, Name: "b"}, Name: "b"},
		},
		Groups: [][]bool{
			{true, false},
			{false, true},
			{true, true},
		},
		InputSchema: testChildSchema,
		Limit:       unbounded,
	}

	encoded, err := Encode(a, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := out.(*Aggregate)
	if !ok {
		t.Fatalf("got %T, want *Aggregate", out)
	}
	want := [][]bool{
		{true, false},
		{false, true},
		{true, true},
	}
	if len(got.Groups) != len(want) {
		t.Fatalf("got %d grouping sets, want %d", len(got.Groups), len(want))
	}
	for i := range want {
		if len(got.Groups[i]) != len(want[i]) {
			t.Fatalf("row %d: got %v, want %v", i, got.Groups[i], want[i])
		}
		for j := range want[i] {
			if got.Groups[i][j] != want[i][j] {
				t.Fatalf("row %d: got %v, want %v", i, got.Groups[i], want[i])
			}
		}
	}
}

func TestAggregateNoGroupingSets(t *testing.T) {
	child := &Empty{Sch: testChildSchema}
	a := &Aggregate{
		nonterminal: nonterminal{input: child},
		Mode:        Single,
		GroupExprs: []GroupExpr{
			{Expr: &pexpr.Column{Index: 0, Name: "a"}, Name: "a"},
		},
		InputSchema: testChildSchema,
		Limit:       unbounded,
	}
	encoded, err := Encode(a, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got := out.(*Aggregate)
	if got.Groups != nil {
		t.Fatalf("expected nil Groups, got %v", got.Groups)
	}
}

func TestAggregateUnknownModeIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	settype("aggregate", &buf, &st)
	buf.BeginField(st.Intern("children"))
	buf.BeginList(1)
	if err := encodeOp(&buf, &st, &Empty{Sch: testChildSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	buf.EndList()
	buf.BeginField(st.Intern("mode"))
	buf.WriteInt(99)
	buf.BeginField(st.Intern("inputschema"))
	testChildSchema.Encode(&buf, &st)
	buf.EndStruct()

	final := ion.Buffer{}
	st.Marshal(&final, true)
	final.UnsafeAppend(buf.Bytes())

	_, err := Decode(final.Bytes(), nil, DefaultExtensionCodec{})
	if err == nil {
		t.Fatal("expected error for unknown aggregate mode")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

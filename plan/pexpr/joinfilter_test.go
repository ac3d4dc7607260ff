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

// TestJoinFilterRoundTrip grounds the HashJoin-with-filter scenario:
// the filter's predicate is parsed against its own synthetic schema,
// built from selected left/right columns, not either input schema.
func TestJoinFilterRoundTrip(t *testing.T) {
	jf := &JoinFilter{
		Schema: schema.Schema{
			{Name: "l_a", Type: schema.Int64},
			{Name: "r_b", Type: schema.Utf8},
		},
		ColumnIndices: []JoinColumnIndex{
			{Index: 0, Side: Left},
			{Index: 1, Side: Right},
		},
		Expr: &Binary{
			Op:    OpEq,
			Left:  &Column{Index: 0, Name: "l_a"},
			Right: &Literal{Value: ion.Int(1)},
		},
	}

	var buf ion.Buffer
	var st ion.Symtab
	jf.Encode(&buf, &st)

	out, err := DecodeJoinFilter(&st, buf.Bytes(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.ColumnIndices) != 2 || out.ColumnIndices[1].Side != Right || out.ColumnIndices[1].Index != 1 {
		t.Fatalf("got %+v", out.ColumnIndices)
	}
	if !out.Schema.Equal(jf.Schema) {
		t.Fatalf("schema mismatch: %#v != %#v", out.Schema, jf.Schema)
	}
	b, ok := out.Expr.(*Binary)
	if !ok {
		t.Fatalf("got %T, want *Binary", out.Expr)
	}
	col, ok := b.Left.(*Column)
	if !ok || col.Index != 0 {
		t.Fatalf("expected predicate to reference filter schema index 0, got %+v", b.Left)
	}
}

func TestJoinFilterUnknownSideIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	buf.BeginField(st.Intern("schema"))
	schema.Schema{{Name: "l_a", Type: schema.Int64}}.Encode(&buf, &st)
	buf.BeginField(st.Intern("columnindices"))
	buf.BeginList(1)
	buf.BeginStruct(-1)
	buf.BeginField(st.Intern("index"))
	buf.WriteInt(0)
	buf.BeginField(st.Intern("side"))
	buf.WriteInt(99)
	buf.EndStruct()
	buf.EndList()
	buf.BeginField(st.Intern("expr"))
	(&Literal{Value: ion.Int(1)}).encode(&buf, &st)
	buf.EndStruct()

	_, err := DecodeJoinFilter(&st, buf.Bytes(), nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown join side")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

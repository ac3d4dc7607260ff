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
	"github.com/sneller/physplan/schema"
)

var testChildSchema = schema.Schema{
	{Name: "a", Type: schema.Int64},
	{Name: "b", Type: schema.Utf8},
	{Name: "c", Type: schema.Float64},
}

// TestFilterProjectionSchema grounds the Filter-with-projection
// scenario: the predicate's column indices address the projected
// schema, not the raw child schema, so a predicate over "c" (index 1
// of the projection, index 2 of the child) must be parsed relative to
// the projected position.
func TestFilterProjectionSchema(t *testing.T) {
	child := &Empty{Sch: testChildSchema}
	f := &Filter{
		nonterminal: nonterminal{input: child},
		Projection:  []int{0, 2}, // project away "b"
		Predicate: &pexpr.Binary{
			Op:    pexpr.OpGt,
			Left:  &pexpr.Column{Index: 1, Name: "c"}, // position 1 in the *projected* schema
			Right: &pexpr.Literal{Value: ion.Float(0)},
		},
		DefaultSelectivity: 50,
	}

	encoded, err := Encode(f, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := out.(*Filter)
	if !ok {
		t.Fatalf("got %T, want *Filter", out)
	}
	if !got.Schema().Equal(schema.Schema{{Name: "a", Type: schema.Int64}, {Name: "c", Type: schema.Float64}}) {
		t.Fatalf("unexpected projected schema: %#v", got.Schema())
	}
	b, ok := got.Predicate.(*pexpr.Binary)
	if !ok {
		t.Fatalf("got %T, want *pexpr.Binary", got.Predicate)
	}
	col, ok := b.Left.(*pexpr.Column)
	if !ok || col.Index != 1 || col.Name != "c" {
		t.Fatalf("expected predicate column to reference projected index 1, got %+v", b.Left)
	}
}

func TestFilterMissingPredicateIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	settype("filter", &buf, &st)
	buf.BeginField(st.Intern("children"))
	buf.BeginList(1)
	if err := encodeOp(&buf, &st, &Empty{Sch: testChildSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	buf.EndList()
	buf.BeginField(st.Intern("defaultselectivity"))
	buf.WriteInt(10)
	buf.EndStruct()

	final := ion.Buffer{}
	st.Marshal(&final, true)
	final.UnsafeAppend(buf.Bytes())

	_, err := Decode(final.Bytes(), nil, DefaultExtensionCodec{})
	if err == nil {
		t.Fatal("expected error for missing predicate")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

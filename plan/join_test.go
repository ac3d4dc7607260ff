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

var leftSchema = schema.Schema{
	{Name: "id", Type: schema.Int64},
	{Name: "name", Type: schema.Utf8},
}

var rightSchema = schema.Schema{
	{Name: "id", Type: schema.Int64},
	{Name: "amount", Type: schema.Float64},
}

// TestHashJoinFilterSyntheticSchema grounds the HashJoin-with-filter
// scenario: the JoinFilter's predicate is parsed against its own
// synthetic schema (selected columns from both sides), not either
// input schema directly.
func TestHashJoinFilterSyntheticSchema(t *testing.T) {
	left := &Empty{Sch: leftSchema}
	right := &Empty{Sch: rightSchema}

	filterSchema := schema.Schema{
		{Name: "name", Type: schema.Utf8},
		{Name: "amount", Type: schema.Float64},
	}
	h := &HashJoin{
		left:  left,
		right: right,
		On: []equiPair{
			{Left: &pexpr.Column{Index: 0, Name: "id"}, Right: &pexpr.Column{Index: 0, Name: "id"}},
		},
		Type:   Inner,
		NullEq: NullEqualsNothing,
		Filter: &pexpr.JoinFilter{
			Schema: filterSchema,
			ColumnIndices: []pexpr.JoinColumnIndex{
				{Index: 1, Side: pexpr.Left},
				{Index: 1, Side: pexpr.Right},
			},
			Expr: &pexpr.Binary{
				Op:    pexpr.OpGt,
				Left:  &pexpr.Column{Index: 1, Name: "amount"},
				Right: &pexpr.Literal{Value: ion.Int(0)},
			},
		},
		Mode: CollectLeft,
	}

	encoded, err := Encode(h, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := out.(*HashJoin)
	if !ok {
		t.Fatalf("got %T, want *HashJoin", out)
	}
	if got.Filter == nil {
		t.Fatal("expected filter to survive round trip")
	}
	if !got.Filter.Schema.Equal(filterSchema) {
		t.Fatalf("filter schema mismatch: %#v != %#v", got.Filter.Schema, filterSchema)
	}
	if len(got.Filter.ColumnIndices) != 2 || got.Filter.ColumnIndices[1].Side != pexpr.Right {
		t.Fatalf("unexpected column indices: %+v", got.Filter.ColumnIndices)
	}
	b, ok := got.Filter.Expr.(*pexpr.Binary)
	if !ok {
		t.Fatalf("got %T, want *pexpr.Binary", got.Filter.Expr)
	}
	col, ok := b.Left.(*pexpr.Column)
	if !ok || col.Index != 1 {
		t.Fatalf("expected predicate to reference filter-schema index 1, got %+v", b.Left)
	}
	wantJoined := concatSchema(leftSchema, rightSchema)
	if !got.Schema().Equal(wantJoined) {
		t.Fatalf("join output schema mismatch: %#v != %#v", got.Schema(), wantJoined)
	}
}

func TestHashJoinUnknownJoinTypeIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	settype("hashjoin", &buf, &st)
	buf.BeginField(st.Intern("children"))
	buf.BeginList(2)
	if err := encodeOp(&buf, &st, &Empty{Sch: leftSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	if err := encodeOp(&buf, &st, &Empty{Sch: rightSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	buf.EndList()
	encodeEquiPairs(&buf, &st, "on", nil)
	buf.BeginField(st.Intern("jointype"))
	buf.WriteInt(99)
	buf.BeginField(st.Intern("nullequality"))
	buf.WriteInt(int64(NullEqualsNothing))
	buf.BeginField(st.Intern("partitionmode"))
	buf.WriteInt(int64(CollectLeft))
	buf.EndStruct()

	final := ion.Buffer{}
	st.Marshal(&final, true)
	final.UnsafeAppend(buf.Bytes())

	_, err := Decode(final.Bytes(), nil, DefaultExtensionCodec{})
	if err == nil {
		t.Fatal("expected error for unknown hashjoin jointype")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

func TestHashJoinUnknownNullEqualityIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	settype("hashjoin", &buf, &st)
	buf.BeginField(st.Intern("children"))
	buf.BeginList(2)
	if err := encodeOp(&buf, &st, &Empty{Sch: leftSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	if err := encodeOp(&buf, &st, &Empty{Sch: rightSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	buf.EndList()
	encodeEquiPairs(&buf, &st, "on", nil)
	buf.BeginField(st.Intern("jointype"))
	buf.WriteInt(int64(Inner))
	buf.BeginField(st.Intern("nullequality"))
	buf.WriteInt(99)
	buf.BeginField(st.Intern("partitionmode"))
	buf.WriteInt(int64(CollectLeft))
	buf.EndStruct()

	final := ion.Buffer{}
	st.Marshal(&final, true)
	final.UnsafeAppend(buf.Bytes())

	_, err := Decode(final.Bytes(), nil, DefaultExtensionCodec{})
	if err == nil {
		t.Fatal("expected error for unknown hashjoin nullequality")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

func TestHashJoinUnknownPartitionModeIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	settype("hashjoin", &buf, &st)
	buf.BeginField(st.Intern("children"))
	buf.BeginList(2)
	if err := encodeOp(&buf, &st, &Empty{Sch: leftSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	if err := encodeOp(&buf, &st, &Empty{Sch: rightSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	buf.EndList()
	encodeEquiPairs(&buf, &st, "on", nil)
	buf.BeginField(st.Intern("jointype"))
	buf.WriteInt(int64(Inner))
	buf.BeginField(st.Intern("nullequality"))
	buf.WriteInt(int64(NullEqualsNothing))
	buf.BeginField(st.Intern("partitionmode"))
	buf.WriteInt(99)
	buf.EndStruct()

	final := ion.Buffer{}
	st.Marshal(&final, true)
	final.UnsafeAppend(buf.Bytes())

	_, err := Decode(final.Bytes(), nil, DefaultExtensionCodec{})
	if err == nil {
		t.Fatal("expected error for unknown hashjoin partitionmode")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

func TestNestedLoopJoinUnknownJoinTypeIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	settype("nestedloopjoin", &buf, &st)
	buf.BeginField(st.Intern("children"))
	buf.BeginList(2)
	if err := encodeOp(&buf, &st, &Empty{Sch: leftSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	if err := encodeOp(&buf, &st, &Empty{Sch: rightSchema}, DefaultExtensionCodec{}); err != nil {
		t.Fatal(err)
	}
	buf.EndList()
	buf.BeginField(st.Intern("jointype"))
	buf.WriteInt(99)
	buf.EndStruct()

	final := ion.Buffer{}
	st.Marshal(&final, true)
	final.UnsafeAppend(buf.Bytes())

	_, err := Decode(final.Bytes(), nil, DefaultExtensionCodec{})
	if err == nil {
		t.Fatal("expected error for unknown nestedloopjoin jointype")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

func TestCrossJoinRoundTrip(t *testing.T) {
	left := &Empty{Sch: leftSchema}
	right := &Empty{Sch: rightSchema}
	c := &CrossJoin{left: left, right: right}
	encoded, err := Encode(c, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*CrossJoin); !ok {
		t.Fatalf("got %T, want *CrossJoin", out)
	}
}

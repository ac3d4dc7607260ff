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

package schema

import (
	"testing"

	"github.com/sneller/physplan/ion"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Schema{
		{Name: "a", Type: Int64, Nullable: false},
		{Name: "b", Type: Utf8, Nullable: true},
		{Name: "c", Type: List, Nullable: true},
	}
	var buf ion.Buffer
	var st ion.Symtab
	in.Encode(&buf, &st)

	out, _, err := Decode(&st, buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !in.Equal(out) {
		t.Fatalf("round trip mismatch: %#v != %#v", in, out)
	}
}

func TestDecodeUnknownFieldTypeIsError(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginList(1)
	buf.BeginStruct(-1)
	buf.BeginField(st.Intern("name"))
	buf.WriteString("a")
	buf.BeginField(st.Intern("type"))
	buf.WriteInt(99)
	buf.BeginField(st.Intern("nullable"))
	buf.WriteBool(false)
	buf.EndStruct()
	buf.EndList()

	if _, _, err := Decode(&st, buf.Bytes()); err == nil {
		t.Fatal("expected error for unknown field type")
	}
}

func TestTypeValid(t *testing.T) {
	if Invalid.Valid() {
		t.Fatal("Invalid must not be a valid wire type")
	}
	if !Boolean.Valid() || !Struct.Valid() {
		t.Fatal("expected Boolean and Struct to be valid")
	}
	if Type(99).Valid() {
		t.Fatal("expected out-of-range type to be invalid")
	}
}

func TestEqual(t *testing.T) {
	a := Schema{{Name: "x", Type: Int32}}
	b := Schema{{Name: "x", Type: Int32}}
	c := Schema{{Name: "x", Type: Int64}}
	if !a.Equal(b) {
		t.Fatal("expected equal schemas to compare equal")
	}
	if a.Equal(c) {
		t.Fatal("expected differing types to compare unequal")
	}
}

func TestIndex(t *testing.T) {
	s := Schema{{Name: "a"}, {Name: "b"}}
	if s.Index("b") != 1 {
		t.Fatalf("expected index 1, got %d", s.Index("b"))
	}
	if s.Index("missing") != -1 {
		t.Fatal("expected -1 for missing field")
	}
}

func TestProject(t *testing.T) {
	s := Schema{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	out, err := s.Project([]int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	want := Schema{{Name: "c"}, {Name: "a"}}
	if !out.Equal(want) {
		t.Fatalf("got %#v, want %#v", out, want)
	}
	if _, err := s.Project([]int{5}); err == nil {
		t.Fatal("expected error for out-of-range projection index")
	}
}

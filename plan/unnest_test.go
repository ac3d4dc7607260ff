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
	"testing"

	"github.com/sneller/physplan/schema"
)

// TestUnnestCarriesExplicitSchema checks that Unnest's output schema
// is transported on the wire rather than derived, since its shape
// can't be computed from the input schema alone.
func TestUnnestCarriesExplicitSchema(t *testing.T) {
	child := &Empty{Sch: testChildSchema}
	outSchema := schema.Schema{
		{Name: "a", Type: schema.Int64},
		{Name: "item", Type: schema.Utf8, Nullable: true},
	}
	u := &Unnest{
		nonterminal:       nonterminal{input: child},
		ListTypeColumns:   []ListTypeColumn{{IndexInInputSchema: 1, Depth: 1}},
		StructTypeColumns: []int{2},
		OutputSchema:      outSchema,
		PreserveNulls:     true,
	}
	encoded, err := Encode(u, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := out.(*Unnest)
	if !ok {
		t.Fatalf("got %T, want *Unnest", out)
	}
	if !got.Schema().Equal(outSchema) {
		t.Fatalf("schema mismatch: %#v != %#v", got.Schema(), outSchema)
	}
	if len(got.ListTypeColumns) != 1 || got.ListTypeColumns[0].Depth != 1 {
		t.Fatalf("got %+v", got.ListTypeColumns)
	}
	if len(got.StructTypeColumns) != 1 || got.StructTypeColumns[0] != 2 {
		t.Fatalf("got %+v", got.StructTypeColumns)
	}
	if !got.PreserveNulls {
		t.Fatal("expected PreserveNulls to survive round trip")
	}
}

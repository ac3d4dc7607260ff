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
)

func TestExplainRoundTrip(t *testing.T) {
	child := &Empty{Sch: testChildSchema}
	e := &Explain{
		nonterminal:  nonterminal{input: child},
		OutputSchema: testChildSchema,
		PlanText:     "Projection: a, b\n  TableScan: t",
		Verbose:      true,
	}
	encoded, err := Encode(e, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := out.(*Explain)
	if !ok {
		t.Fatalf("got %T, want *Explain", out)
	}
	if got.PlanText != e.PlanText || !got.Verbose {
		t.Fatalf("got %+v", got)
	}
	if !got.Schema().Equal(testChildSchema) {
		t.Fatalf("schema mismatch: %#v != %#v", got.Schema(), testChildSchema)
	}
}

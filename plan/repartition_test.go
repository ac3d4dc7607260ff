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

	"github.com/sneller/physplan/plan/pexpr"
)

func TestRepartitionRoundRobin(t *testing.T) {
	child := &Empty{Sch: testChildSchema}
	r := &Repartition{
		nonterminal:  nonterminal{input: child},
		Partitioning: Partitioning{Kind: RoundRobin, Count: 8},
	}
	encoded, err := Encode(r, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got := out.(*Repartition)
	if got.Partitioning.Kind != RoundRobin || got.Partitioning.Count != 8 {
		t.Fatalf("got %+v", got.Partitioning)
	}
	if got.Partitioning.HashExprs != nil {
		t.Fatalf("expected nil hash exprs for round-robin, got %v", got.Partitioning.HashExprs)
	}
}

func TestRepartitionHashExprsRoundTrip(t *testing.T) {
	child := &Empty{Sch: testChildSchema}
	r := &Repartition{
		nonterminal: nonterminal{input: child},
		Partitioning: Partitioning{
			Kind:      HashPartitioning,
			Count:     4,
			HashExprs: []pexpr.Expr{&pexpr.Column{Index: 0, Name: "a"}},
		},
	}
	encoded, err := Encode(r, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got := out.(*Repartition)
	if len(got.Partitioning.HashExprs) != 1 {
		t.Fatalf("got %+v", got.Partitioning.HashExprs)
	}
	col, ok := got.Partitioning.HashExprs[0].(*pexpr.Column)
	if !ok || col.Index != 0 {
		t.Fatalf("got %+v", got.Partitioning.HashExprs[0])
	}
}

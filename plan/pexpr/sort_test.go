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
	"testing"

	"github.com/sneller/physplan/ion"
)

// TestParseOrderingRejectsEmpty grounds the SortExec-empty-ordering
// scenario: a SortExec (or SortPreservingMergeExec) must not decode
// with an empty ordering list.
func TestParseOrderingRejectsEmpty(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	EncodeOrdering(&buf, &st, nil)
	if _, err := ParseOrdering(&st, buf.Bytes(), testSchema); err == nil {
		t.Fatal("expected error for empty ordering")
	}
}

func TestParseOrderingAllowEmptyAcceptsEmpty(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	EncodeOrdering(&buf, &st, nil)
	order, err := ParseOrderingAllowEmpty(&st, buf.Bytes(), testSchema)
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 0 {
		t.Fatalf("expected empty ordering, got %d entries", len(order))
	}
}

func TestParseOrderingRoundTrip(t *testing.T) {
	in := []SortExpr{
		{Expr: &Column{Index: 0, Name: "a"}, Descending: true, NullsFirst: false},
		{Expr: &Column{Index: 1, Name: "b"}, Descending: false, NullsFirst: true},
	}
	var buf ion.Buffer
	var st ion.Symtab
	EncodeOrdering(&buf, &st, in)
	out, err := ParseOrdering(&st, buf.Bytes(), testSchema)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Descending != true || out[1].NullsFirst != true {
		t.Fatalf("got %+v", out)
	}
}

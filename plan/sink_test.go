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

// TestCsvSinkNoSortRequirement checks that an absent sort requirement
// round-trips as nil, not an empty-but-present list.
func TestCsvSinkNoSortRequirement(t *testing.T) {
	child := &Empty{Sch: testChildSchema}
	c := &CsvSink{
		nonterminal: nonterminal{input: child},
		Path:        "out.csv",
		HasHeader:   true,
		Delimiter:   ',',
		Quote:       '"',
	}
	encoded, err := Encode(c, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got := out.(*CsvSink)
	if got.SortRequirement != nil {
		t.Fatalf("expected nil sort requirement, got %v", got.SortRequirement)
	}
}

// TestParquetSinkSortRequirementRoundTrip grounds the sort-requirement
// scenario: a non-empty ordering on a DataSink round-trips and has its
// expressions parsed against the sink's input schema.
func TestParquetSinkSortRequirementRoundTrip(t *testing.T) {
	child := &Empty{Sch: testChildSchema}
	p := &ParquetSink{
		nonterminal:  nonterminal{input: child},
		Path:         "out.parquet",
		Compression:  "zstd",
		RowGroupSize: 1 << 20,
		SortRequirement: []pexpr.SortExpr{
			{Expr: &pexpr.Column{Index: 0, Name: "a"}, Descending: true},
		},
	}
	encoded, err := Encode(p, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got := out.(*ParquetSink)
	if len(got.SortRequirement) != 1 || !got.SortRequirement[0].Descending {
		t.Fatalf("got %+v", got.SortRequirement)
	}
	col, ok := got.SortRequirement[0].Expr.(*pexpr.Column)
	if !ok || col.Index != 0 {
		t.Fatalf("expected sort expr to reference input column 0, got %+v", got.SortRequirement[0].Expr)
	}
}

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

// TestWindowInputOrderModeDiscriminatesVariant grounds the
// bounded-streaming-window scenario: the same "window" wire tag
// serves both the unbounded and bounded-streaming variants, selected
// solely by whether InputOrderMode is present on the wire.
func TestWindowInputOrderModeDiscriminatesVariant(t *testing.T) {
	child := &Empty{Sch: testChildSchema}

	unbounded := &Window{nonterminal: nonterminal{input: child}}
	encoded, err := Encode(unbounded, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got := out.(*Window)
	if got.InputOrderMode != nil {
		t.Fatalf("expected nil InputOrderMode for unbounded variant, got %+v", got.InputOrderMode)
	}

	streaming := &Window{
		nonterminal:    nonterminal{input: child},
		InputOrderMode: &pexpr.InputOrderMode{Kind: pexpr.PartiallySorted, Columns: []int{0}},
	}
	encoded, err = Encode(streaming, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	out, err = Decode(encoded, nil, DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got = out.(*Window)
	if got.InputOrderMode == nil || got.InputOrderMode.Kind != pexpr.PartiallySorted {
		t.Fatalf("expected streaming InputOrderMode to survive round trip, got %+v", got.InputOrderMode)
	}
}

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
)

// TestInputOrderModeRoundTrip grounds the bounded-streaming-window
// scenario: InputOrderMode's presence on the wire, not a separate
// operator tag, selects the streaming variant.
func TestInputOrderModeRoundTrip(t *testing.T) {
	in := &InputOrderMode{Kind: PartiallySorted, Columns: []int{0, 2}}
	var buf ion.Buffer
	var st ion.Symtab
	in.Encode(&buf, &st)
	out, err := DecodeInputOrderMode(&st, buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != PartiallySorted || len(out.Columns) != 2 || out.Columns[1] != 2 {
		t.Fatalf("got %+v", out)
	}
}

func TestInputOrderModeUnknownKindIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginStruct(-1)
	buf.BeginField(st.Intern("kind"))
	buf.WriteInt(99)
	buf.BeginField(st.Intern("columns"))
	buf.BeginList(0)
	buf.EndList()
	buf.EndStruct()

	_, err := DecodeInputOrderMode(&st, buf.Bytes())
	if err == nil {
		t.Fatal("expected error for unknown input order kind")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

func TestWindowExprUnknownReturnTypeIsMalformed(t *testing.T) {
	var buf ion.Buffer
	var st ion.Symtab
	buf.BeginList(1)
	buf.BeginStruct(-1)
	buf.BeginField(st.Intern("func"))
	buf.WriteString("sum")
	buf.BeginField(st.Intern("args"))
	buf.BeginList(0)
	buf.EndList()
	buf.BeginField(st.Intern("partitionby"))
	buf.BeginList(0)
	buf.EndList()
	buf.BeginField(st.Intern("ignorenulls"))
	buf.WriteBool(false)
	buf.BeginField(st.Intern("returntype"))
	buf.WriteInt(99)
	buf.EndStruct()
	buf.EndList()

	_, err := ParseWindowExprs(&st, buf.Bytes(), nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown window returntype")
	}
	var m *perrors.Malformed
	if !errors.As(err, &m) {
		t.Fatalf("expected *perrors.Malformed, got %T: %v", err, err)
	}
}

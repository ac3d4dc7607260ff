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
	"github.com/sneller/physplan/ion"
	"github.com/sneller/physplan/schema"
)

// Op is a physical operator: a node in a rose tree of operators. Each
// Op derives its output Schema from its kind, its Children, and its
// own parameters; only a handful of kinds that cannot derive their
// own output schema (Explain, Analyze, Empty, PlaceholderRow, Unnest)
// carry one explicitly.
//
// Operators are immutable once constructed. Sharing is permitted at
// the Go value level, but the codec never preserves structural
// sharing across a round trip: two equal subtrees encode and decode
// to distinct Op values.
type Op interface {
	Schema() schema.Schema
	Children() []Op
}

// builtinOp is implemented by every built-in operator kind. It is
// unexported because embedders never need to implement it themselves:
// operators outside the closed set go through ExtensionCodec instead.
type builtinOp interface {
	Op
	wireTag() string
	encodeFields(dst *ion.Buffer, st *ion.Symtab)
}

// settype writes the discriminant field that opens every envelope
// struct, mirroring the convention pexpr uses for its own tagged
// expression nodes.
func settype(name string, dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("type"))
	dst.WriteSymbol(st.Intern(name))
}

// nonterminal is embedded by every operator with exactly one child,
// which is most of them; joins and Union/Interleave hold their
// children directly instead.
type nonterminal struct {
	input Op
}

func (n *nonterminal) Children() []Op {
	if n.input == nil {
		return nil
	}
	return []Op{n.input}
}

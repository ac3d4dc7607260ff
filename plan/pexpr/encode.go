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

import "github.com/sneller/physplan/ion"

// settype writes the discriminant field every tagged expression struct
// begins with, mirroring the plan package's own tagged-union envelope.
func settype(name string, dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("type"))
	dst.WriteSymbol(st.Intern(name))
}

func (c *Column) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("column", dst, st)
	dst.BeginField(st.Intern("index"))
	dst.WriteInt(int64(c.Index))
	dst.BeginField(st.Intern("name"))
	dst.WriteString(c.Name)
	dst.EndStruct()
}

func (l *Literal) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("literal", dst, st)
	dst.BeginField(st.Intern("value"))
	l.Value.Encode(dst, st)
	dst.EndStruct()
}

func (n *Not) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("not", dst, st)
	dst.BeginField(st.Intern("arg"))
	Encode(n.Arg, dst, st)
	dst.EndStruct()
}

func (n *IsNull) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("isnull", dst, st)
	dst.BeginField(st.Intern("arg"))
	Encode(n.Arg, dst, st)
	dst.BeginField(st.Intern("negated"))
	dst.WriteBool(n.Negated)
	dst.EndStruct()
}

func (n *Negative) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("negative", dst, st)
	dst.BeginField(st.Intern("arg"))
	Encode(n.Arg, dst, st)
	dst.EndStruct()
}

func (b *Binary) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("binary", dst, st)
	dst.BeginField(st.Intern("op"))
	dst.WriteString(binaryOpNames[b.Op])
	dst.BeginField(st.Intern("left"))
	Encode(b.Left, dst, st)
	dst.BeginField(st.Intern("right"))
	Encode(b.Right, dst, st)
	dst.EndStruct()
}

func (c *Cast) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("cast", dst, st)
	dst.BeginField(st.Intern("arg"))
	Encode(c.Arg, dst, st)
	dst.BeginField(st.Intern("to"))
	dst.WriteInt(int64(c.To))
	dst.EndStruct()
}

func (c *TryCast) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("trycast", dst, st)
	dst.BeginField(st.Intern("arg"))
	Encode(c.Arg, dst, st)
	dst.BeginField(st.Intern("to"))
	dst.WriteInt(int64(c.To))
	dst.EndStruct()
}

func (n *InList) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("inlist", dst, st)
	dst.BeginField(st.Intern("arg"))
	Encode(n.Arg, dst, st)
	dst.BeginField(st.Intern("list"))
	dst.BeginList(len(n.List))
	for _, e := range n.List {
		Encode(e, dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("negated"))
	dst.WriteBool(n.Negated)
	dst.EndStruct()
}

func (l *Like) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("like", dst, st)
	dst.BeginField(st.Intern("arg"))
	Encode(l.Arg, dst, st)
	dst.BeginField(st.Intern("pattern"))
	Encode(l.Pattern, dst, st)
	dst.BeginField(st.Intern("caseinsensitive"))
	dst.WriteBool(l.CaseInsensitive)
	dst.BeginField(st.Intern("negated"))
	dst.WriteBool(l.Negated)
	dst.EndStruct()
}

func (c *Case) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("case", dst, st)
	if c.Expr != nil {
		dst.BeginField(st.Intern("expr"))
		Encode(c.Expr, dst, st)
	}
	dst.BeginField(st.Intern("when"))
	dst.BeginList(len(c.Arms))
	for _, a := range c.Arms {
		Encode(a.When, dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("then"))
	dst.BeginList(len(c.Arms))
	for _, a := range c.Arms {
		Encode(a.Then, dst, st)
	}
	dst.EndList()
	if c.Else != nil {
		dst.BeginField(st.Intern("else"))
		Encode(c.Else, dst, st)
	}
	dst.EndStruct()
}

func (f *ScalarFunc) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginStruct(-1)
	settype("scalarfunc", dst, st)
	dst.BeginField(st.Intern("name"))
	dst.WriteString(f.Name)
	dst.BeginField(st.Intern("args"))
	dst.BeginList(len(f.Args))
	for _, a := range f.Args {
		Encode(a, dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("returntype"))
	dst.WriteInt(int64(f.ReturnType))
	dst.EndStruct()
}

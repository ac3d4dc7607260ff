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
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/schema"
)

// Explain carries the rendered plan text for presentation to a user
// rather than for execution. It cannot derive its own output, so the
// schema travels on the wire.
type Explain struct {
	nonterminal
	OutputSchema schema.Schema
	PlanText     string
	Verbose      bool
}

func (e *Explain) Schema() schema.Schema { return e.OutputSchema }
func (e *Explain) wireTag() string       { return "explain" }

func (e *Explain) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("schema"))
	e.OutputSchema.Encode(dst, st)
	dst.BeginField(st.Intern("plantext"))
	dst.WriteString(e.PlanText)
	dst.BeginField(st.Intern("verbose"))
	dst.WriteBool(e.Verbose)
}

func decodeExplain(st *ion.Symtab, body []byte, children []Op) (Op, error) {
	child, err := oneChild(children, "explain")
	if err != nil {
		return nil, err
	}
	e := &Explain{nonterminal: nonterminal{input: child}}
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "schema":
			e.OutputSchema, _, err2 = schema.Decode(st, v)
		case "plantext":
			e.PlanText, _, err2 = ion.ReadString(v)
		case "verbose":
			e.Verbose, _, err2 = ion.ReadBool(v)
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("explain", uerr)
	}
	return e, nil
}

// Analyze runs its input to completion and reports execution
// statistics alongside the rendered plan text.
type Analyze struct {
	nonterminal
	OutputSchema   schema.Schema
	Verbose        bool
	ShowStatistics bool
}

func (a *Analyze) Schema() schema.Schema { return a.OutputSchema }
func (a *Analyze) wireTag() string       { return "analyze" }

func (a *Analyze) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("schema"))
	a.OutputSchema.Encode(dst, st)
	dst.BeginField(st.Intern("verbose"))
	dst.WriteBool(a.Verbose)
	dst.BeginField(st.Intern("showstatistics"))
	dst.WriteBool(a.ShowStatistics)
}

func decodeAnalyze(st *ion.Symtab, body []byte, children []Op) (Op, error) {
	child, err := oneChild(children, "analyze")
	if err != nil {
		return nil, err
	}
	a := &Analyze{nonterminal: nonterminal{input: child}}
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "schema":
			a.OutputSchema, _, err2 = schema.Decode(st, v)
		case "verbose":
			a.Verbose, _, err2 = ion.ReadBool(v)
		case "showstatistics":
			a.ShowStatistics, _, err2 = ion.ReadBool(v)
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("analyze", uerr)
	}
	return a, nil
}

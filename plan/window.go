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
	"github.com/sneller/physplan/plan/pexpr"
	"github.com/sneller/physplan/schema"
)

// Window evaluates WindowExprs over its input, appending one output
// column per expression after all of the input's own columns. A
// present InputOrderMode selects the bounded-streaming variant of this
// operator; a nil one is the plain unbounded variant. Both share this
// wire tag, discriminated only by the field's presence.
type Window struct {
	nonterminal
	WindowExprs    []*pexpr.WindowExpr
	InputOrderMode *pexpr.InputOrderMode // optional
}

func (w *Window) Schema() schema.Schema {
	childSchema := w.input.Schema()
	out := make(schema.Schema, 0, len(childSchema)+len(w.WindowExprs))
	out = append(out, childSchema...)
	for _, we := range w.WindowExprs {
		out = append(out, schema.Field{
			Name:     we.Func,
			Type:     we.ReturnType,
			Nullable: true,
		})
	}
	return out
}

func (w *Window) wireTag() string { return "window" }

func (w *Window) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("windowexprs"))
	pexpr.EncodeWindowExprs(dst, st, w.WindowExprs)
	if w.InputOrderMode != nil {
		dst.BeginField(st.Intern("inputordermode"))
		w.InputOrderMode.Encode(dst, st)
	}
}

func decodeWindow(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "window")
	if err != nil {
		return nil, err
	}
	w := &Window{nonterminal: nonterminal{input: child}}
	var windowExprsBody, iomBody []byte
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "windowexprs":
			windowExprsBody = v
		case "inputordermode":
			iomBody = v
		}
		return nil
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("window", uerr)
	}
	if windowExprsBody != nil {
		w.WindowExprs, err = pexpr.ParseWindowExprs(st, windowExprsBody, child.Schema(), reg, ext)
		if err != nil {
			return nil, err
		}
	}
	if iomBody != nil {
		w.InputOrderMode, err = pexpr.DecodeInputOrderMode(st, iomBody)
		if err != nil {
			return nil, err
		}
	}
	return w, nil
}

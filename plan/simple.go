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

// CoalesceBatches accumulates small input batches into batches of at
// least TargetBatchSize rows before emitting them downstream.
type CoalesceBatches struct {
	nonterminal
	TargetBatchSize int
}

func (c *CoalesceBatches) Schema() schema.Schema { return c.input.Schema() }
func (c *CoalesceBatches) wireTag() string       { return "coalescebatches" }
func (c *CoalesceBatches) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("targetbatchsize"))
	dst.WriteInt(int64(c.TargetBatchSize))
}

func decodeCoalesceBatches(st *ion.Symtab, body []byte, children []Op) (Op, error) {
	child, err := oneChild(children, "coalescebatches")
	if err != nil {
		return nil, err
	}
	c := &CoalesceBatches{nonterminal: nonterminal{input: child}}
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		if f != "targetbatchsize" {
			return nil
		}
		n, _, err := ion.ReadInt(v)
		c.TargetBatchSize = int(n)
		return err
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("coalescebatches", uerr)
	}
	return c, nil
}

// CoalescePartitions merges all input partitions into a single one.
type CoalescePartitions struct{ nonterminal }

func (c *CoalescePartitions) Schema() schema.Schema       { return c.input.Schema() }
func (c *CoalescePartitions) wireTag() string             { return "coalescepartitions" }
func (c *CoalescePartitions) encodeFields(*ion.Buffer, *ion.Symtab) {}

func decodeCoalescePartitions(st *ion.Symtab, body []byte, children []Op) (Op, error) {
	child, err := oneChild(children, "coalescepartitions")
	if err != nil {
		return nil, err
	}
	return &CoalescePartitions{nonterminal{input: child}}, nil
}

// GlobalLimit skips Skip rows then emits at most Fetch more (Fetch ==
// -1 means unbounded) across all partitions combined.
type GlobalLimit struct {
	nonterminal
	Skip  int64
	Fetch int64
}

func (g *GlobalLimit) Schema() schema.Schema { return g.input.Schema() }
func (g *GlobalLimit) wireTag() string       { return "globallimit" }
func (g *GlobalLimit) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("skip"))
	dst.WriteInt(g.Skip)
	dst.BeginField(st.Intern("fetch"))
	dst.WriteInt(g.Fetch)
}

func decodeGlobalLimit(st *ion.Symtab, body []byte, children []Op) (Op, error) {
	child, err := oneChild(children, "globallimit")
	if err != nil {
		return nil, err
	}
	g := &GlobalLimit{nonterminal: nonterminal{input: child}, Fetch: unbounded}
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "skip":
			g.Skip, _, err2 = ion.ReadInt(v)
		case "fetch":
			g.Fetch, _, err2 = ion.ReadInt(v)
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("globallimit", uerr)
	}
	return g, nil
}

// LocalLimit caps each partition independently at Fetch rows.
type LocalLimit struct {
	nonterminal
	Fetch int64
}

func (l *LocalLimit) Schema() schema.Schema { return l.input.Schema() }
func (l *LocalLimit) wireTag() string       { return "locallimit" }
func (l *LocalLimit) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("fetch"))
	dst.WriteInt(l.Fetch)
}

func decodeLocalLimit(st *ion.Symtab, body []byte, children []Op) (Op, error) {
	child, err := oneChild(children, "locallimit")
	if err != nil {
		return nil, err
	}
	l := &LocalLimit{nonterminal: nonterminal{input: child}}
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		if f != "fetch" {
			return nil
		}
		var err error
		l.Fetch, _, err = ion.ReadInt(v)
		return err
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("locallimit", uerr)
	}
	return l, nil
}

// Union concatenates its inputs, which must share a schema.
type Union struct{ inputs []Op }

func (u *Union) Children() []Op     { return u.inputs }
func (u *Union) Schema() schema.Schema {
	if len(u.inputs) == 0 {
		return nil
	}
	return u.inputs[0].Schema()
}
func (u *Union) wireTag() string { return "union" }
func (u *Union) encodeFields(*ion.Buffer, *ion.Symtab) {}

func decodeUnion(children []Op) (Op, error) { return &Union{inputs: children}, nil }

// Interleave round-robins rows from its inputs, which must share a
// schema and partitioning.
type Interleave struct{ inputs []Op }

func (u *Interleave) Children() []Op { return u.inputs }
func (u *Interleave) Schema() schema.Schema {
	if len(u.inputs) == 0 {
		return nil
	}
	return u.inputs[0].Schema()
}
func (u *Interleave) wireTag() string { return "interleave" }
func (u *Interleave) encodeFields(*ion.Buffer, *ion.Symtab) {}

func decodeInterleave(children []Op) (Op, error) { return &Interleave{inputs: children}, nil }

// Empty produces zero rows of an explicit schema; it cannot derive
// its own output, so the schema travels on the wire.
type Empty struct {
	Sch           schema.Schema
	ProduceOneRow bool
}

func (e *Empty) Children() []Op      { return nil }
func (e *Empty) Schema() schema.Schema { return e.Sch }
func (e *Empty) wireTag() string     { return "empty" }
func (e *Empty) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("schema"))
	e.Sch.Encode(dst, st)
	dst.BeginField(st.Intern("produceonerow"))
	dst.WriteBool(e.ProduceOneRow)
}

func decodeEmpty(st *ion.Symtab, body []byte) (Op, error) {
	e := &Empty{}
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "schema":
			e.Sch, _, err = schema.Decode(st, v)
		case "produceonerow":
			e.ProduceOneRow, _, err = ion.ReadBool(v)
		}
		return err
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("empty", uerr)
	}
	return e, nil
}

// PlaceholderRow produces a single row of an explicit schema with no
// columns bound to any input; it is used for queries with only
// constant output (e.g. SELECT 1).
type PlaceholderRow struct {
	Sch schema.Schema
}

func (p *PlaceholderRow) Children() []Op        { return nil }
func (p *PlaceholderRow) Schema() schema.Schema { return p.Sch }
func (p *PlaceholderRow) wireTag() string       { return "placeholderrow" }
func (p *PlaceholderRow) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("schema"))
	p.Sch.Encode(dst, st)
}

func decodePlaceholderRow(st *ion.Symtab, body []byte) (Op, error) {
	p := &PlaceholderRow{}
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		if f != "schema" {
			return nil
		}
		p.Sch, _, err = schema.Decode(st, v)
		return err
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("placeholderrow", uerr)
	}
	return p, nil
}

// Cooperative wraps its input so the execution runtime can insert a
// yield point between batches without changing output.
type Cooperative struct{ nonterminal }

func (c *Cooperative) Schema() schema.Schema { return c.input.Schema() }
func (c *Cooperative) wireTag() string       { return "cooperative" }
func (c *Cooperative) encodeFields(*ion.Buffer, *ion.Symtab) {}

func decodeCooperative(children []Op) (Op, error) {
	child, err := oneChild(children, "cooperative")
	if err != nil {
		return nil, err
	}
	return &Cooperative{nonterminal{input: child}}, nil
}

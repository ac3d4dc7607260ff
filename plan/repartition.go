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
	"github.com/sneller/physplan/plan/pexpr"
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/schema"
)

// PartitioningKind discriminates the variant carried by a Repartition
// node's Partitioning field.
type PartitioningKind int

const (
	RoundRobin PartitioningKind = iota
	HashPartitioning
	UnknownPartitioning
)

// Partitioning is itself a small discriminated union: round-robin
// carries only a partition count, hash partitioning additionally
// carries the expressions to hash, parsed against the child schema.
type Partitioning struct {
	Kind        PartitioningKind
	Count       int
	HashExprs   []pexpr.Expr
}

// Repartition redistributes its input's rows across Partitioning's
// partition count, according to Partitioning's strategy.
type Repartition struct {
	nonterminal
	Partitioning Partitioning
}

func (r *Repartition) Schema() schema.Schema { return r.input.Schema() }
func (r *Repartition) wireTag() string       { return "repartition" }

func (r *Repartition) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("partitioning"))
	dst.BeginStruct(-1)
	dst.BeginField(st.Intern("kind"))
	dst.WriteInt(int64(r.Partitioning.Kind))
	dst.BeginField(st.Intern("count"))
	dst.WriteInt(int64(r.Partitioning.Count))
	if r.Partitioning.Kind == HashPartitioning {
		dst.BeginField(st.Intern("hashexprs"))
		dst.BeginList(len(r.Partitioning.HashExprs))
		for _, e := range r.Partitioning.HashExprs {
			pexpr.Encode(e, dst, st)
		}
		dst.EndList()
	}
	dst.EndStruct()
}

func decodeRepartition(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "repartition")
	if err != nil {
		return nil, err
	}
	r := &Repartition{nonterminal: nonterminal{input: child}}
	var partBody []byte
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		if f == "partitioning" {
			partBody = v
		}
		return nil
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("repartition", uerr)
	}
	if partBody == nil {
		return nil, perrors.NewMalformed("repartition: missing partitioning")
	}
	var hashExprsBody []byte
	var err2 error
	_, uerr = ion.UnpackStruct(st, partBody, func(f string, v []byte) error {
		switch f {
		case "kind":
			var n int64
			n, _, err2 = ion.ReadInt(v)
			r.Partitioning.Kind = PartitioningKind(n)
		case "count":
			var n int64
			n, _, err2 = ion.ReadInt(v)
			r.Partitioning.Count = int(n)
		case "hashexprs":
			hashExprsBody = v
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("repartition.partitioning", uerr)
	}
	switch r.Partitioning.Kind {
	case RoundRobin, UnknownPartitioning:
	case HashPartitioning:
		if hashExprsBody == nil {
			return nil, perrors.NewMalformed("hash partitioning: missing hashexprs")
		}
		_, err := ion.UnpackList(hashExprsBody, func(item []byte) error {
			e, err := pexpr.ParseExpr(st, item, child.Schema())
			if err != nil {
				return err
			}
			if err := pexpr.ResolveFuncs(e, reg, ext); err != nil {
				return err
			}
			r.Partitioning.HashExprs = append(r.Partitioning.HashExprs, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, perrors.NewMalformed("repartition: unknown partitioning kind")
	}
	return r, nil
}

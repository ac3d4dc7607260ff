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
	"fmt"

	"github.com/sneller/physplan/ion"
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/plan/pexpr"
	"github.com/sneller/physplan/schema"
)

// JoinType discriminates the row-matching semantics of a join.
type JoinType int

const (
	Inner JoinType = iota
	Left
	Right
	Full
	LeftSemi
	RightSemi
	LeftAnti
	RightAnti
)

// NullEquality says whether two null keys are considered equal for
// the purposes of the join's equi-join condition.
type NullEquality int

const (
	NullEqualsNothing NullEquality = iota
	NullEqualsNull
)

// PartitionMode says how a HashJoin's build side is partitioned
// across workers.
type PartitionMode int

const (
	CollectLeft PartitionMode = iota
	Partitioned
	AutoPartition
)

func validJoinType(t JoinType) bool {
	switch t {
	case Inner, Left, Right, Full, LeftSemi, RightSemi, LeftAnti, RightAnti:
		return true
	default:
		return false
	}
}

func validNullEquality(e NullEquality) bool {
	switch e {
	case NullEqualsNothing, NullEqualsNull:
		return true
	default:
		return false
	}
}

func validPartitionMode(m PartitionMode) bool {
	switch m {
	case CollectLeft, Partitioned, AutoPartition:
		return true
	default:
		return false
	}
}

func concatSchema(left, right schema.Schema) schema.Schema {
	out := make(schema.Schema, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// equiPair encodes/decodes a single (left, right) equi-join expression
// pair, each parsed against its own side's schema.
type equiPair struct {
	Left  pexpr.Expr
	Right pexpr.Expr
}

func encodeEquiPairs(dst *ion.Buffer, st *ion.Symtab, field string, pairs []equiPair) {
	dst.BeginField(st.Intern(field))
	dst.BeginList(len(pairs))
	for _, p := range pairs {
		dst.BeginStruct(-1)
		dst.BeginField(st.Intern("left"))
		pexpr.Encode(p.Left, dst, st)
		dst.BeginField(st.Intern("right"))
		pexpr.Encode(p.Right, dst, st)
		dst.EndStruct()
	}
	dst.EndList()
}

func decodeEquiPairs(st *ion.Symtab, body []byte, leftSchema, rightSchema schema.Schema, reg pexpr.FunctionRegistry, ext ExtensionCodec) ([]equiPair, error) {
	var out []equiPair
	_, err := ion.UnpackList(body, func(item []byte) error {
		var p equiPair
		var leftBody, rightBody []byte
		_, uerr := ion.UnpackStruct(st, item, func(f string, v []byte) error {
			switch f {
			case "left":
				leftBody = v
			case "right":
				rightBody = v
			}
			return nil
		})
		if uerr != nil {
			return uerr
		}
		var err error
		p.Left, err = pexpr.ParseExpr(st, leftBody, leftSchema)
		if err != nil {
			return err
		}
		if err := pexpr.ResolveFuncs(p.Left, reg, ext); err != nil {
			return err
		}
		p.Right, err = pexpr.ParseExpr(st, rightBody, rightSchema)
		if err != nil {
			return err
		}
		if err := pexpr.ResolveFuncs(p.Right, reg, ext); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HashJoin builds a hash table over one side's On expressions and
// probes it with the other side's, optionally refining matches with
// Filter and restricting output columns with Projection.
type HashJoin struct {
	left, right Op
	On          []equiPair
	Type        JoinType
	NullEq      NullEquality
	Filter      *pexpr.JoinFilter
	Projection  []int
	Mode        PartitionMode
}

func (h *HashJoin) Children() []Op { return []Op{h.left, h.right} }

func (h *HashJoin) Schema() schema.Schema {
	sch := concatSchema(h.left.Schema(), h.right.Schema())
	if h.Projection == nil {
		return sch
	}
	out, err := sch.Project(h.Projection)
	if err != nil {
		panic(err)
	}
	return out
}

func (h *HashJoin) wireTag() string { return "hashjoin" }

func (h *HashJoin) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	encodeEquiPairs(dst, st, "on", h.On)
	dst.BeginField(st.Intern("jointype"))
	dst.WriteInt(int64(h.Type))
	dst.BeginField(st.Intern("nullequality"))
	dst.WriteInt(int64(h.NullEq))
	if h.Filter != nil {
		dst.BeginField(st.Intern("filter"))
		h.Filter.Encode(dst, st)
	}
	if h.Projection != nil {
		dst.BeginField(st.Intern("projection"))
		dst.BeginList(len(h.Projection))
		for _, idx := range h.Projection {
			dst.WriteInt(int64(idx))
		}
		dst.EndList()
	}
	dst.BeginField(st.Intern("partitionmode"))
	dst.WriteInt(int64(h.Mode))
}

func decodeHashJoin(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	left, right, err := twoChildren(children, "hashjoin")
	if err != nil {
		return nil, err
	}
	h := &HashJoin{left: left, right: right}
	var onBody, filterBody []byte
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "on":
			onBody = v
		case "jointype":
			var n int64
			n, _, err2 = ion.ReadInt(v)
			if err2 == nil {
				if !validJoinType(JoinType(n)) {
					err2 = perrors.NewMalformed(fmt.Sprintf("hashjoin: unknown jointype %d", n))
				} else {
					h.Type = JoinType(n)
				}
			}
		case "nullequality":
			var n int64
			n, _, err2 = ion.ReadInt(v)
			if err2 == nil {
				if !validNullEquality(NullEquality(n)) {
					err2 = perrors.NewMalformed(fmt.Sprintf("hashjoin: unknown nullequality %d", n))
				} else {
					h.NullEq = NullEquality(n)
				}
			}
		case "filter":
			filterBody = v
		case "projection":
			err2 = nil
			_, err2 = ion.UnpackList(v, func(item []byte) error {
				n, _, err := ion.ReadInt(item)
				if err != nil {
					return err
				}
				h.Projection = append(h.Projection, int(n))
				return nil
			})
		case "partitionmode":
			var n int64
			n, _, err2 = ion.ReadInt(v)
			if err2 == nil {
				if !validPartitionMode(PartitionMode(n)) {
					err2 = perrors.NewMalformed(fmt.Sprintf("hashjoin: unknown partitionmode %d", n))
				} else {
					h.Mode = PartitionMode(n)
				}
			}
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("hashjoin", uerr)
	}
	h.On, err = decodeEquiPairs(st, onBody, left.Schema(), right.Schema(), reg, ext)
	if err != nil {
		return nil, err
	}
	if filterBody != nil {
		h.Filter, err = pexpr.DecodeJoinFilter(st, filterBody, reg, ext)
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

// SymmetricHashJoin is HashJoin's streaming variant: both sides feed
// the join incrementally, optionally guided by a per-side sort
// ordering that lets the executor expire state early.
type SymmetricHashJoin struct {
	left, right       Op
	On                []equiPair
	Type              JoinType
	NullEq            NullEquality
	Filter            *pexpr.JoinFilter
	LeftOrdering      []pexpr.SortExpr
	RightOrdering     []pexpr.SortExpr
}

func (s *SymmetricHashJoin) Children() []Op       { return []Op{s.left, s.right} }
func (s *SymmetricHashJoin) Schema() schema.Schema { return concatSchema(s.left.Schema(), s.right.Schema()) }
func (s *SymmetricHashJoin) wireTag() string       { return "symmetrichashjoin" }

func (s *SymmetricHashJoin) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	encodeEquiPairs(dst, st, "on", s.On)
	dst.BeginField(st.Intern("jointype"))
	dst.WriteInt(int64(s.Type))
	dst.BeginField(st.Intern("nullequality"))
	dst.WriteInt(int64(s.NullEq))
	if s.Filter != nil {
		dst.BeginField(st.Intern("filter"))
		s.Filter.Encode(dst, st)
	}
	dst.BeginField(st.Intern("leftordering"))
	pexpr.EncodeOrdering(dst, st, s.LeftOrdering)
	dst.BeginField(st.Intern("rightordering"))
	pexpr.EncodeOrdering(dst, st, s.RightOrdering)
}

func decodeSymmetricHashJoin(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	left, right, err := twoChildren(children, "symmetrichashjoin")
	if err != nil {
		return nil, err
	}
	s := &SymmetricHashJoin{left: left, right: right}
	var onBody, filterBody, leftOrdBody, rightOrdBody []byte
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "on":
			onBody = v
		case "jointype":
			var n int64
			n, _, err2 = ion.ReadInt(v)
			if err2 == nil {
				if !validJoinType(JoinType(n)) {
					err2 = perrors.NewMalformed(fmt.Sprintf("symmetrichashjoin: unknown jointype %d", n))
				} else {
					s.Type = JoinType(n)
				}
			}
		case "nullequality":
			var n int64
			n, _, err2 = ion.ReadInt(v)
			if err2 == nil {
				if !validNullEquality(NullEquality(n)) {
					err2 = perrors.NewMalformed(fmt.Sprintf("symmetrichashjoin: unknown nullequality %d", n))
				} else {
					s.NullEq = NullEquality(n)
				}
			}
		case "filter":
			filterBody = v
		case "leftordering":
			leftOrdBody = v
		case "rightordering":
			rightOrdBody = v
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("symmetrichashjoin", uerr)
	}
	s.On, err = decodeEquiPairs(st, onBody, left.Schema(), right.Schema(), reg, ext)
	if err != nil {
		return nil, err
	}
	if filterBody != nil {
		s.Filter, err = pexpr.DecodeJoinFilter(st, filterBody, reg, ext)
		if err != nil {
			return nil, err
		}
	}
	if leftOrdBody != nil {
		s.LeftOrdering, err = pexpr.ParseOrderingAllowEmpty(st, leftOrdBody, left.Schema())
		if err != nil {
			return nil, err
		}
	}
	if rightOrdBody != nil {
		s.RightOrdering, err = pexpr.ParseOrderingAllowEmpty(st, rightOrdBody, right.Schema())
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CrossJoin emits the full cartesian product of its inputs.
type CrossJoin struct{ left, right Op }

func (c *CrossJoin) Children() []Op       { return []Op{c.left, c.right} }
func (c *CrossJoin) Schema() schema.Schema { return concatSchema(c.left.Schema(), c.right.Schema()) }
func (c *CrossJoin) wireTag() string       { return "crossjoin" }
func (c *CrossJoin) encodeFields(*ion.Buffer, *ion.Symtab) {}

func decodeCrossJoin(children []Op) (Op, error) {
	left, right, err := twoChildren(children, "crossjoin")
	if err != nil {
		return nil, err
	}
	return &CrossJoin{left: left, right: right}, nil
}

// NestedLoopJoin evaluates Filter once per (left row, right row) pair
// with no equi-join condition to accelerate the search.
type NestedLoopJoin struct {
	left, right Op
	Type        JoinType
	Filter      *pexpr.JoinFilter
}

func (n *NestedLoopJoin) Children() []Op       { return []Op{n.left, n.right} }
func (n *NestedLoopJoin) Schema() schema.Schema { return concatSchema(n.left.Schema(), n.right.Schema()) }
func (n *NestedLoopJoin) wireTag() string       { return "nestedloopjoin" }

func (n *NestedLoopJoin) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("jointype"))
	dst.WriteInt(int64(n.Type))
	if n.Filter != nil {
		dst.BeginField(st.Intern("filter"))
		n.Filter.Encode(dst, st)
	}
}

func decodeNestedLoopJoin(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	left, right, err := twoChildren(children, "nestedloopjoin")
	if err != nil {
		return nil, err
	}
	n := &NestedLoopJoin{left: left, right: right}
	var filterBody []byte
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "jointype":
			var i64 int64
			i64, _, err2 = ion.ReadInt(v)
			if err2 == nil {
				if !validJoinType(JoinType(i64)) {
					err2 = perrors.NewMalformed(fmt.Sprintf("nestedloopjoin: unknown jointype %d", i64))
				} else {
					n.Type = JoinType(i64)
				}
			}
		case "filter":
			filterBody = v
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("nestedloopjoin", uerr)
	}
	if filterBody != nil {
		n.Filter, err = pexpr.DecodeJoinFilter(st, filterBody, reg, ext)
		if err != nil {
			return nil, err
		}
	}
	return n, nil
}

func twoChildren(children []Op, tag string) (Op, Op, error) {
	if len(children) != 2 {
		return nil, nil, perrors.NewMalformed(fmt.Sprintf("%s: expected 2 children, got %d", tag, len(children)))
	}
	return children[0], children[1], nil
}

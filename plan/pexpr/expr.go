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

// Package pexpr is the expression sub-codec of the physical plan
// codec: a tagged tree that references column indices relative to a
// specific schema. Operator handlers in package plan delegate
// expression, sort-expression, group-by, and aggregate/window
// expression encoding here.
//
// Every parse function is schema-threaded: it must be called with the
// schema of the already-reconstructed child, never the schema the
// encoder originally saw, since extension operators may reshape their
// output.
package pexpr

import (
	"fmt"

	"github.com/sneller/physplan/ion"
	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/schema"
)

// Expr is a node in a physical expression tree. Column references
// address a schema by position, not by name; the name is carried
// alongside for diagnostics only.
type Expr interface {
	encode(dst *ion.Buffer, st *ion.Symtab)
}

// Encode writes e to dst as a self-describing tagged struct.
func Encode(e Expr, dst *ion.Buffer, st *ion.Symtab) {
	e.encode(dst, st)
}

// Column is a reference to a field of the schema the expression is
// parsed against.
type Column struct {
	Index int
	Name  string
}

// Literal is a constant value. The value itself is stored as a plain
// ion datum, which makes literal round-tripping exact without a
// parallel type tag: the ion encoding is already self-describing.
type Literal struct {
	Value ion.Datum
}

// Not negates a boolean expression.
type Not struct{ Arg Expr }

// IsNull tests Arg for null-ness; Negated selects "is not null".
type IsNull struct {
	Arg     Expr
	Negated bool
}

// Negative is unary arithmetic negation.
type Negative struct{ Arg Expr }

// BinaryOp enumerates the binary operators transported on the wire.
// An operator travels as its name from binaryOpNames, not as its
// numeric value.
type BinaryOp int

const (
	OpInvalid BinaryOp = iota
	OpEq
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
)

var binaryOpNames = map[BinaryOp]string{
	OpEq: "eq", OpNotEq: "neq", OpLt: "lt", OpLtEq: "lteq",
	OpGt: "gt", OpGtEq: "gteq", OpAnd: "and", OpOr: "or",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpBitAnd: "bitand", OpBitOr: "bitor", OpBitXor: "bitxor",
}

var binaryOpValues = func() map[string]BinaryOp {
	m := make(map[string]BinaryOp, len(binaryOpNames))
	for k, v := range binaryOpNames {
		m[v] = k
	}
	return m
}()

// Binary is a two-argument operator expression.
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

// Cast converts Arg to To; a failed conversion at evaluation time is
// an error (TryCast would return null instead, and is modeled as a
// separate node so the wire tag is unambiguous).
type Cast struct {
	Arg Expr
	To  schema.Type
}

// TryCast is Cast's null-on-failure counterpart.
type TryCast struct {
	Arg Expr
	To  schema.Type
}

// InList tests whether Arg equals any expression in List.
type InList struct {
	Arg     Expr
	List    []Expr
	Negated bool
}

// Like implements SQL LIKE/ILIKE.
type Like struct {
	Arg             Expr
	Pattern         Expr
	CaseInsensitive bool
	Negated         bool
}

// WhenThen is one arm of a Case expression.
type WhenThen struct {
	When Expr
	Then Expr
}

// Case is a CASE [expr] WHEN ... THEN ... [ELSE ...] END expression.
// Expr is nil for the searched form (CASE WHEN cond THEN ...).
type Case struct {
	Expr  Expr
	Arms  []WhenThen
	Else  Expr
}

// ScalarFunc calls a named scalar function, resolved via the two-step
// fallback described on FunctionRegistry and ResolveScalar: first the
// FunctionRegistry by name, then the extension codec.
type ScalarFunc struct {
	Name       string
	Args       []Expr
	ReturnType schema.Type
	udf        ScalarUDF // non-nil only when the registry/codec actually resolved one
}

// UDF returns the resolved scalar function implementation, if any was
// attached during decode.
func (s *ScalarFunc) UDF() ScalarUDF { return s.udf }

func schemaErr(msg string) error { return perrors.NewSchemaMismatch(msg) }

func checkColumn(idx int, name string, sch schema.Schema) error {
	if idx < 0 || idx >= len(sch) {
		return schemaErr(fmt.Sprintf("column index %d (%q) out of range for schema of length %d", idx, name, len(sch)))
	}
	return nil
}

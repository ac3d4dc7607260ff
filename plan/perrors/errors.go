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

// Package perrors holds the four error kinds produced by the plan
// codec. They live in their own leaf package so that both plan and
// plan/pexpr can construct them without an import cycle.
package perrors

import "fmt"

// Malformed means the wire bytes themselves are invalid: a missing or
// multi-valued envelope, an enum out of range, mismatched parallel
// array lengths, an oversized single-byte field, an empty required
// sub-message.
type Malformed struct {
	Msg string
	Err error
}

func (e *Malformed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed plan: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("malformed plan: %s", e.Msg)
}

func (e *Malformed) Unwrap() error { return e.Err }

func NewMalformed(msg string) error { return &Malformed{Msg: msg} }

func WrapMalformed(msg string, err error) error { return &Malformed{Msg: msg, Err: err} }

// Unsupported means no built-in handler matched and no extension
// codec in the stack accepted the operator, UDF, or blob either.
type Unsupported struct {
	Msg string
}

func (e *Unsupported) Error() string { return fmt.Sprintf("unsupported: %s", e.Msg) }

func NewUnsupported(msg string) error { return &Unsupported{Msg: msg} }

// SchemaMismatch means an explicit schema carried by an operator
// contradicts the schema derived from its children, or an expression
// references a column absent from its resolved schema.
type SchemaMismatch struct {
	Msg string
}

func (e *SchemaMismatch) Error() string { return fmt.Sprintf("schema mismatch: %s", e.Msg) }

func NewSchemaMismatch(msg string) error { return &SchemaMismatch{Msg: msg} }

// Internal wraps failures bubbled up from the underlying wire framing:
// length overflow, truncated buffer, and the like.
type Internal struct {
	Err error
}

func (e *Internal) Error() string { return fmt.Sprintf("internal codec error: %v", e.Err) }

func (e *Internal) Unwrap() error { return e.Err }

func WrapInternal(err error) error { return &Internal{Err: err} }

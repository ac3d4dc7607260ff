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

// Package schema holds the output-row type carried alongside a physical
// plan: an ordered sequence of named, typed, nullable fields.
//
// Schemas are derived, not transmitted, for most operators; only the
// leaf scans and a handful of operators that cannot derive their own
// output (Explain, Empty, PlaceholderRow, Analyze, Unnest) carry an
// explicit Schema on the wire.
package schema

import (
	"fmt"

	"github.com/sneller/physplan/ion"
)

// Type is the logical type of a Field. The numeric values are part of
// the wire format: they are written as plain integers, so the order
// below must never change once a value has shipped.
type Type int

const (
	Invalid Type = iota
	Boolean
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	Utf8
	Binary
	Date32
	Timestamp
	Decimal128
	List
	Struct
)

// Valid reports whether t is one of the declared Type values. Invalid
// itself does not count: it is the zero value, never a legal wire
// value for a field's type.
func (t Type) Valid() bool {
	return t >= Boolean && t <= Struct
}

func (t Type) String() string {
	switch t {
	case Boolean:
		return "boolean"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Utf8:
		return "utf8"
	case Binary:
		return "binary"
	case Date32:
		return "date32"
	case Timestamp:
		return "timestamp"
	case Decimal128:
		return "decimal128"
	case List:
		return "list"
	case Struct:
		return "struct"
	default:
		return "invalid"
	}
}

// Field is one column of a Schema.
type Field struct {
	Name     string
	Type     Type
	Nullable bool
}

func (f Field) Equal(o Field) bool {
	return f.Name == o.Name && f.Type == o.Type && f.Nullable == o.Nullable
}

// Schema is an ordered sequence of fields. Two schemas are value-equal
// when their field sequences match element-wise.
type Schema []Field

func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Index looks up a field by name, returning its index or -1.
func (s Schema) Index(name string) int {
	for i := range s {
		if s[i].Name == name {
			return i
		}
	}
	return -1
}

// Project returns the schema consisting of the fields at the given
// indices, in order. It is used to compute the projected schema that
// a Filter predicate is parsed against when a projection is present,
// and a HashJoin's projected output schema.
func (s Schema) Project(indices []int) (Schema, error) {
	out := make(Schema, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(s) {
			return nil, fmt.Errorf("schema: projection index %d out of range [0,%d)", idx, len(s))
		}
		out[i] = s[idx]
	}
	return out, nil
}

// Encode writes the schema as an ion list of structs, one per field.
func (s Schema) Encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginList(len(s))
	for _, f := range s {
		dst.BeginStruct(-1)
		dst.BeginField(st.Intern("name"))
		dst.WriteString(f.Name)
		dst.BeginField(st.Intern("type"))
		dst.WriteInt(int64(f.Type))
		dst.BeginField(st.Intern("nullable"))
		dst.WriteBool(f.Nullable)
		dst.EndStruct()
	}
	dst.EndList()
}

// Decode reads a schema previously written by Encode.
func Decode(st *ion.Symtab, body []byte) (Schema, []byte, error) {
	var out Schema
	rest, err := ion.UnpackList(body, func(item []byte) error {
		var f Field
		_, err := ion.UnpackStruct(st, item, func(name string, v []byte) error {
			var err error
			switch name {
			case "name":
				f.Name, _, err = ion.ReadString(v)
			case "type":
				var n int64
				n, _, err = ion.ReadInt(v)
				if err == nil {
					if !Type(n).Valid() {
						err = fmt.Errorf("schema: unknown field type %d", n)
					} else {
						f.Type = Type(n)
					}
				}
			case "nullable":
				f.Nullable, _, err = ion.ReadBool(v)
			}
			return err
		})
		if err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("schema.Decode: %w", err)
	}
	return out, rest, nil
}

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

import "github.com/sneller/physplan/plan/perrors"

// ScalarUDF, AggregateUDF, and WindowUDF are the three kinds of
// user-defined function the codec can resolve by name. They are
// opaque to pexpr beyond their Name: the runtime that owns the
// registry is the only party that needs to call them.
type ScalarUDF interface{ Name() string }

type AggregateUDF interface{ Name() string }

type WindowUDF interface{ Name() string }

// FunctionRegistry resolves a named function to its implementation.
// It is consulted before the extension codec (see UDFCodec) so that a
// deployment can pre-register stable UDFs and fall back to the
// extension stack only for ones negotiated dynamically.
type FunctionRegistry interface {
	ScalarUDF(name string) (ScalarUDF, bool)
	AggregateUDF(name string) (AggregateUDF, bool)
	WindowUDF(name string) (WindowUDF, bool)
}

// UDFCodec is the subset of the plan package's ExtensionCodec that
// resolves UDFs not found in the registry. It lives here, rather than
// in package plan, so pexpr can depend on it without an import cycle
// (plan depends on pexpr, not the reverse).
type UDFCodec interface {
	DecodeScalarUDF(name string, blob []byte) (ScalarUDF, error)
	DecodeAggregateUDF(name string, blob []byte) (AggregateUDF, error)
	DecodeWindowUDF(name string, blob []byte) (WindowUDF, error)
}

// ResolveScalar implements the two-step fallback documented for UDF
// resolution: registry first, then the extension codec. blob is the
// codec-private payload handed to the extension codec; the expression
// decoders in this package carry no such payload on the wire and pass
// nil.
func ResolveScalar(name string, blob []byte, reg FunctionRegistry, ext UDFCodec) (ScalarUDF, error) {
	if reg != nil {
		if udf, ok := reg.ScalarUDF(name); ok {
			return udf, nil
		}
	}
	if ext != nil {
		return ext.DecodeScalarUDF(name, blob)
	}
	return nil, perrors.NewUnsupported("scalar function " + name + ": not in registry and no extension codec configured")
}

func ResolveAggregate(name string, blob []byte, reg FunctionRegistry, ext UDFCodec) (AggregateUDF, error) {
	if reg != nil {
		if udf, ok := reg.AggregateUDF(name); ok {
			return udf, nil
		}
	}
	if ext != nil {
		return ext.DecodeAggregateUDF(name, blob)
	}
	return nil, perrors.NewUnsupported("aggregate function " + name + ": not in registry and no extension codec configured")
}

func ResolveWindow(name string, blob []byte, reg FunctionRegistry, ext UDFCodec) (WindowUDF, error) {
	if reg != nil {
		if udf, ok := reg.WindowUDF(name); ok {
			return udf, nil
		}
	}
	if ext != nil {
		return ext.DecodeWindowUDF(name, blob)
	}
	return nil, perrors.NewUnsupported("window function " + name + ": not in registry and no extension codec configured")
}

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
)

// ExtensionCodec lets an embedder add operators, and scalar/aggregate/
// window UDFs, that the built-in dispatcher does not know about. When
// the built-in encode dispatch finds no downcast match, and when the
// decoder encounters the "extension" wire tag, these methods are
// consulted.
//
// EncodeOperator returns ok=false (not an error) when this codec does
// not recognize op, so a ComposedExtensionCodec can try the next
// codec in its stack; a genuine failure to encode a recognized op
// should return an error instead.
type ExtensionCodec interface {
	EncodeOperator(op Op) (blob []byte, ok bool, err error)
	DecodeOperator(blob []byte, children []Op) (Op, error)

	pexpr.UDFCodec

	EncodeScalarUDF(udf pexpr.ScalarUDF) ([]byte, error)
	EncodeAggregateUDF(udf pexpr.AggregateUDF) ([]byte, error)
	EncodeWindowUDF(udf pexpr.WindowUDF) ([]byte, error)
}

// DefaultExtensionCodec is the zero-value codec used when an embedder
// supplies none: every decode and UDF-encode method reports
// Unsupported, and EncodeOperator declines every operator (ok=false),
// which encodeExtension then reports as Unsupported.
type DefaultExtensionCodec struct{}

func (DefaultExtensionCodec) EncodeOperator(Op) ([]byte, bool, error) { return nil, false, nil }

func (DefaultExtensionCodec) DecodeOperator(_ []byte, _ []Op) (Op, error) {
	return nil, perrors.NewUnsupported("no extension codec configured to decode operator")
}

func (DefaultExtensionCodec) DecodeScalarUDF(name string, _ []byte) (pexpr.ScalarUDF, error) {
	return nil, perrors.NewUnsupported("no extension codec configured to decode scalar udf " + name)
}

func (DefaultExtensionCodec) DecodeAggregateUDF(name string, _ []byte) (pexpr.AggregateUDF, error) {
	return nil, perrors.NewUnsupported("no extension codec configured to decode aggregate udf " + name)
}

func (DefaultExtensionCodec) DecodeWindowUDF(name string, _ []byte) (pexpr.WindowUDF, error) {
	return nil, perrors.NewUnsupported("no extension codec configured to decode window udf " + name)
}

func (DefaultExtensionCodec) EncodeScalarUDF(pexpr.ScalarUDF) ([]byte, error) {
	return nil, perrors.NewUnsupported("no extension codec configured to encode scalar udf")
}

func (DefaultExtensionCodec) EncodeAggregateUDF(pexpr.AggregateUDF) ([]byte, error) {
	return nil, perrors.NewUnsupported("no extension codec configured to encode aggregate udf")
}

func (DefaultExtensionCodec) EncodeWindowUDF(pexpr.WindowUDF) ([]byte, error) {
	return nil, perrors.NewUnsupported("no extension codec configured to encode window udf")
}

func encodeExtension(dst *ion.Buffer, st *ion.Symtab, op Op, ext ExtensionCodec) error {
	if ext == nil {
		ext = DefaultExtensionCodec{}
	}
	blob, ok, err := ext.EncodeOperator(op)
	if err != nil {
		return err
	}
	if !ok {
		return perrors.NewUnsupported(fmt.Sprintf("%T: no built-in downcast and extension codec does not accept it", op))
	}
	dst.BeginStruct(-1)
	settype("extension", dst, st)
	dst.BeginField(st.Intern("children"))
	dst.BeginList(len(op.Children()))
	for _, c := range op.Children() {
		if err := encodeOp(dst, st, c, ext); err != nil {
			return err
		}
	}
	dst.EndList()
	dst.BeginField(st.Intern("blob"))
	dst.WriteBlob(blob)
	dst.EndStruct()
	return nil
}

func decodeExtension(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	if ext == nil {
		ext = DefaultExtensionCodec{}
	}
	var blob []byte
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		if f != "blob" {
			return nil
		}
		blob, _, err = ion.ReadBytes(v)
		return err
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("extension operator", uerr)
	}
	if err != nil {
		return nil, err
	}
	op, err := ext.DecodeOperator(blob, children)
	if err != nil {
		return nil, err
	}
	return op, nil
}

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
	"encoding/binary"

	"github.com/sneller/physplan/plan/perrors"
	"github.com/sneller/physplan/plan/pexpr"
)

// ComposedExtensionCodec is a stack of extension codecs tried in
// registration order. Its own on-wire form is the small envelope
// documented in the codec design: a uint32 position plus the chosen
// codec's opaque blob. The position is a stable identifier: new
// codecs must be appended to the stack, never inserted, or previously
// encoded blobs will decode through the wrong codec.
type ComposedExtensionCodec struct {
	stack []ExtensionCodec
}

// NewComposedExtensionCodec builds a stack from codecs in the order
// given. That order is the set of stable positions future blobs will
// reference.
func NewComposedExtensionCodec(codecs ...ExtensionCodec) *ComposedExtensionCodec {
	return &ComposedExtensionCodec{stack: append([]ExtensionCodec(nil), codecs...)}
}

// Append adds a codec at the end of the stack, preserving the
// positions (and hence the decodability) of everything encoded so far.
func (c *ComposedExtensionCodec) Append(codec ExtensionCodec) {
	c.stack = append(c.stack, codec)
}

func putPosition(pos uint32, blob []byte) []byte {
	out := make([]byte, 4+len(blob))
	binary.BigEndian.PutUint32(out, pos)
	copy(out[4:], blob)
	return out
}

func getPosition(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, perrors.NewMalformed("composed extension codec: blob too short for position")
	}
	return binary.BigEndian.Uint32(buf), buf[4:], nil
}

// EncodeOperator tries each codec in the stack in order and keeps the
// blob (and records the position) of the first one that accepts the
// operator.
func (c *ComposedExtensionCodec) EncodeOperator(op Op) ([]byte, bool, error) {
	if len(c.stack) == 0 {
		return nil, false, perrors.NewUnsupported("empty composed extension codec")
	}
	var lastErr error
	for i, codec := range c.stack {
		blob, ok, err := codec.EncodeOperator(op)
		if err != nil {
			lastErr = err
			continue
		}
		if !ok {
			continue
		}
		return putPosition(uint32(i), blob), true, nil
	}
	if lastErr != nil {
		return nil, false, lastErr
	}
	return nil, false, nil
}

// DecodeOperator dispatches directly to the codec recorded at encode
// time; it never retries other codecs in the stack, since the
// recorded position is what makes decode deterministic.
func (c *ComposedExtensionCodec) DecodeOperator(blob []byte, children []Op) (Op, error) {
	pos, rest, err := getPosition(blob)
	if err != nil {
		return nil, err
	}
	if int(pos) >= len(c.stack) {
		return nil, perrors.NewMalformed("codec position out of range")
	}
	return c.stack[pos].DecodeOperator(rest, children)
}

func (c *ComposedExtensionCodec) DecodeScalarUDF(name string, blob []byte) (pexpr.ScalarUDF, error) {
	pos, rest, err := getPosition(blob)
	if err != nil {
		return nil, err
	}
	if int(pos) >= len(c.stack) {
		return nil, perrors.NewMalformed("codec position out of range")
	}
	return c.stack[pos].DecodeScalarUDF(name, rest)
}

func (c *ComposedExtensionCodec) DecodeAggregateUDF(name string, blob []byte) (pexpr.AggregateUDF, error) {
	pos, rest, err := getPosition(blob)
	if err != nil {
		return nil, err
	}
	if int(pos) >= len(c.stack) {
		return nil, perrors.NewMalformed("codec position out of range")
	}
	return c.stack[pos].DecodeAggregateUDF(name, rest)
}

func (c *ComposedExtensionCodec) DecodeWindowUDF(name string, blob []byte) (pexpr.WindowUDF, error) {
	pos, rest, err := getPosition(blob)
	if err != nil {
		return nil, err
	}
	if int(pos) >= len(c.stack) {
		return nil, perrors.NewMalformed("codec position out of range")
	}
	return c.stack[pos].DecodeWindowUDF(name, rest)
}

func (c *ComposedExtensionCodec) EncodeScalarUDF(udf pexpr.ScalarUDF) ([]byte, error) {
	var lastErr error
	for i, codec := range c.stack {
		blob, err := codec.EncodeScalarUDF(udf)
		if err != nil {
			lastErr = err
			continue
		}
		return putPosition(uint32(i), blob), nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, perrors.NewUnsupported("empty composed extension codec")
}

func (c *ComposedExtensionCodec) EncodeAggregateUDF(udf pexpr.AggregateUDF) ([]byte, error) {
	var lastErr error
	for i, codec := range c.stack {
		blob, err := codec.EncodeAggregateUDF(udf)
		if err != nil {
			lastErr = err
			continue
		}
		return putPosition(uint32(i), blob), nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, perrors.NewUnsupported("empty composed extension codec")
}

func (c *ComposedExtensionCodec) EncodeWindowUDF(udf pexpr.WindowUDF) ([]byte, error) {
	var lastErr error
	for i, codec := range c.stack {
		blob, err := codec.EncodeWindowUDF(udf)
		if err != nil {
			lastErr = err
			continue
		}
		return putPosition(uint32(i), blob), nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, perrors.NewUnsupported("empty composed extension codec")
}

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

// Package transport wraps an already-encoded plan for persistence or
// transmission: a UUID identity plus optional zstd compression. It
// has no opinion about plan semantics; it never looks inside the
// encoded bytes.
package transport

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/sneller/physplan/plan"
)

// Envelope is a persisted or transmitted plan, tagged with an
// identity and a digest so a receiver can deduplicate or cache
// against it without re-decoding.
type Envelope struct {
	ID         uuid.UUID
	Digest     uint64
	Compressed bool
	Body       []byte
}

// NewEnvelope wraps an already-encoded plan (the output of
// plan.Encode) with a fresh identity.
func NewEnvelope(encoded []byte, compressed bool) Envelope {
	return Envelope{
		ID:         uuid.New(),
		Digest:     plan.Digest(encoded),
		Compressed: compressed,
		Body:       encoded,
	}
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	zstdEncoder = enc
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	zstdDecoder = dec
}

// EncodeCompressed wraps an encoded plan in a compressed Envelope.
func EncodeCompressed(encoded []byte) Envelope {
	body := zstdEncoder.EncodeAll(encoded, nil)
	env := NewEnvelope(encoded, true)
	env.Body = body
	return env
}

// DecodeCompressed reverses EncodeCompressed, returning the original
// encoded plan bytes (suitable for plan.Decode) without checking the
// envelope's Compressed flag -- callers that may receive either
// compressed or uncompressed envelopes should branch on it
// themselves and call this only for the compressed case.
func DecodeCompressed(env Envelope) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(env.Body, nil)
	if err != nil {
		return nil, fmt.Errorf("plan/transport: %w", err)
	}
	if plan.Digest(out) != env.Digest {
		return nil, fmt.Errorf("plan/transport: digest mismatch after decompression")
	}
	return out, nil
}

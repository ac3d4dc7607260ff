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

package transport

import (
	"testing"

	"github.com/sneller/physplan/plan"
	"github.com/sneller/physplan/schema"
)

func encodedPlan(t *testing.T) []byte {
	t.Helper()
	op := &plan.Empty{Sch: schema.Schema{{Name: "a", Type: schema.Int64}}}
	encoded, err := plan.Encode(op, plan.DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	return encoded
}

func TestNewEnvelopeCarriesDigest(t *testing.T) {
	encoded := encodedPlan(t)
	env := NewEnvelope(encoded, false)
	if env.Compressed {
		t.Fatal("expected Compressed to be false")
	}
	if env.Digest != plan.Digest(encoded) {
		t.Fatalf("got digest %d, want %d", env.Digest, plan.Digest(encoded))
	}
	if env.ID.String() == "" {
		t.Fatal("expected a non-empty envelope ID")
	}
	if string(env.Body) != string(encoded) {
		t.Fatal("expected Body to hold the encoded plan verbatim")
	}
}

// TestEncodeCompressedRoundTrip grounds the compressed-transport
// scenario: DecodeCompressed must reverse EncodeCompressed and return
// bytes plan.Decode accepts, with the digest check catching any
// corruption introduced along the way.
func TestEncodeCompressedRoundTrip(t *testing.T) {
	encoded := encodedPlan(t)
	env := EncodeCompressed(encoded)
	if !env.Compressed {
		t.Fatal("expected Compressed to be true")
	}
	if len(env.Body) == 0 {
		t.Fatal("expected non-empty compressed body")
	}

	out, err := DecodeCompressed(env)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string(encoded) {
		t.Fatal("decompressed plan bytes do not match the original encoding")
	}

	decoded, err := plan.Decode(out, nil, plan.DefaultExtensionCodec{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded.(*plan.Empty); !ok {
		t.Fatalf("got %T, want *plan.Empty", decoded)
	}
}

func TestDecodeCompressedDigestMismatchIsError(t *testing.T) {
	encoded := encodedPlan(t)
	env := EncodeCompressed(encoded)
	env.Digest++ // corrupt the recorded digest

	if _, err := DecodeCompressed(env); err == nil {
		t.Fatal("expected error for a digest mismatch")
	}
}

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

import "github.com/dchest/siphash"

// digest keys are fixed so that Digest is stable across process
// restarts; they carry no secrecy requirement since the codec never
// uses Digest for anything but cache-key/dedup purposes.
const (
	digestK0 = 0x5d1ec810febed702
	digestK1 = 0x40fd7fee17262f71
)

// Digest returns a deterministic 64-bit fingerprint of an encoded
// plan. Two plans that Encode to byte-identical output (the
// Determinism property) always produce the same Digest; it is meant
// as a cheap cache key for a distribution layer, not a cryptographic
// hash.
func Digest(encoded []byte) uint64 {
	return siphash.Hash(digestK0, digestK1, encoded)
}

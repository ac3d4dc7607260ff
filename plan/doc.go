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

// Package plan implements the physical execution plan codec: encoding
// and decoding a tree of physical operators to and from a compact,
// self-describing binary form, so that a coordinator can ship a
// compiled plan to a worker or persist it.
//
// The codec is a pair of total functions over a tree of Op values:
//
//	Encode(root Op, ext ExtensionCodec) ([]byte, error)
//	Decode(buf []byte, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error)
//
// Every operator holds ordered child plans. Decoding always
// reconstructs children before the parent, so that a parent handler
// can resolve expressions against the child's actual, just-decoded
// output schema rather than whatever schema the encoder originally
// saw: an Extension child may reshape its own output, and a decoder
// that parsed expressions against a stale schema would silently
// produce the wrong answer.
package plan

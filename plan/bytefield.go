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

	"github.com/sneller/physplan/plan/perrors"
)

// byteToString transports a single byte (CSV delimiter/quote/escape/
// comment) as a length-1 string, for human readability of the wire.
func byteToString(b byte) string {
	return string([]byte{b})
}

// stringToByte is byteToString's inverse. A string of any other
// length is malformed input, not a byte value this field can hold.
func stringToByte(field, s string) (byte, error) {
	if len(s) != 1 {
		return 0, perrors.NewMalformed(fmt.Sprintf("expected single byte for %s", field))
	}
	return s[0], nil
}

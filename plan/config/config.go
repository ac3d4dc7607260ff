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

// Package config loads ambient codec defaults -- CSV delimiter/quote,
// Parquet page-size hints, and the extension-codec stack ordering a
// deployment wants -- from YAML, the way the teacher's table
// definitions are loaded.
package config

import (
	"fmt"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/sneller/physplan/plan"
)

// Codec holds the defaults a deployment applies when constructing new
// scan/sink operators, before any per-query override.
type Codec struct {
	Csv            CsvDefaults     `json:"csv,omitempty"`
	Parquet        ParquetDefaults `json:"parquet,omitempty"`
	ExtensionStack []string        `json:"extensionStack,omitempty"`
}

// CsvDefaults are the single-byte CSV fields, stored as length-1
// strings the same way they travel on the wire (see
// plan.byteToString/stringToByte).
type CsvDefaults struct {
	Delimiter string `json:"delimiter,omitempty"`
	Quote     string `json:"quote,omitempty"`
}

// ParquetDefaults configures the reader/writer hints applied when a
// query doesn't specify its own.
type ParquetDefaults struct {
	PageSizeHintBytes int64 `json:"pageSizeHintBytes,omitempty"`
	RowGroupSize      int64 `json:"rowGroupSize,omitempty"`
}

// Default returns the built-in fallback configuration: comma-
// delimited, double-quoted CSV, an 8KiB Parquet page hint, and no
// extension codecs.
func Default() *Codec {
	return &Codec{
		Csv: CsvDefaults{
			Delimiter: ",",
			Quote:     `"`,
		},
		Parquet: ParquetDefaults{
			PageSizeHintBytes: 8192,
			RowGroupSize:      1 << 20,
		},
	}
}

// Load parses a YAML document into a Codec, starting from Default()
// so unset fields keep their built-in values.
func Load(data []byte) (*Codec, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("plan/config: %w", err)
	}
	return c, nil
}

// Marshal renders c back to YAML, for round-tripping a loaded or
// programmatically built configuration.
func (c *Codec) Marshal() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("plan/config: %w", err)
	}
	return b, nil
}

var (
	extensionFactoriesMu sync.RWMutex
	extensionFactories   = map[string]func() plan.ExtensionCodec{}
)

// RegisterExtensionCodec makes an embedder-supplied extension codec
// available under name for use in a Codec's ExtensionStack. An
// embedder calls this (typically from an init func) once per
// extension codec it wants deployments to be able to select by name
// in YAML, the way the teacher's own scan/sink kinds self-register.
func RegisterExtensionCodec(name string, factory func() plan.ExtensionCodec) {
	extensionFactoriesMu.Lock()
	defer extensionFactoriesMu.Unlock()
	extensionFactories[name] = factory
}

// BuildExtensionCodec resolves c.ExtensionStack, in order, against the
// registry populated by RegisterExtensionCodec, and composes the
// result into a single ComposedExtensionCodec suitable for
// plan.Encode/plan.Decode. An empty ExtensionStack yields a nil
// *ComposedExtensionCodec, not an error: most deployments have no
// extension operators at all.
func (c *Codec) BuildExtensionCodec() (*plan.ComposedExtensionCodec, error) {
	if len(c.ExtensionStack) == 0 {
		return nil, nil
	}
	extensionFactoriesMu.RLock()
	defer extensionFactoriesMu.RUnlock()
	composed := plan.NewComposedExtensionCodec()
	for _, name := range c.ExtensionStack {
		factory, ok := extensionFactories[name]
		if !ok {
			return nil, fmt.Errorf("plan/config: unregistered extension codec %q", name)
		}
		composed.Append(factory())
	}
	return composed, nil
}

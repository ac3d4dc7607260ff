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

package config

import (
	"testing"

	"github.com/sneller/physplan/plan"
)

func TestDefaultValues(t *testing.T) {
	c := Default()
	if c.Csv.Delimiter != "," || c.Csv.Quote != `"` {
		t.Fatalf("unexpected csv defaults: %+v", c.Csv)
	}
	if c.Parquet.PageSizeHintBytes != 8192 || c.Parquet.RowGroupSize != 1<<20 {
		t.Fatalf("unexpected parquet defaults: %+v", c.Parquet)
	}
	if len(c.ExtensionStack) != 0 {
		t.Fatalf("expected no extension stack by default, got %v", c.ExtensionStack)
	}
}

// TestLoadOverridesAndKeepsDefaults grounds the Default()-then-overlay
// loading scenario: a YAML document that sets only the CSV delimiter
// must leave the Parquet defaults untouched.
func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	c, err := Load([]byte("csv:\n  delimiter: \"|\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Csv.Delimiter != "|" {
		t.Fatalf("expected overridden delimiter, got %q", c.Csv.Delimiter)
	}
	if c.Csv.Quote != `"` {
		t.Fatalf("expected default quote to survive, got %q", c.Csv.Quote)
	}
	if c.Parquet.PageSizeHintBytes != 8192 {
		t.Fatalf("expected default parquet page size to survive, got %d", c.Parquet.PageSizeHintBytes)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c := Default()
	c.Csv.Delimiter = ";"
	c.ExtensionStack = []string{"geo"}
	b, err := c.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	out, err := Load(b)
	if err != nil {
		t.Fatal(err)
	}
	if out.Csv.Delimiter != ";" {
		t.Fatalf("got delimiter %q, want %q", out.Csv.Delimiter, ";")
	}
	if len(out.ExtensionStack) != 1 || out.ExtensionStack[0] != "geo" {
		t.Fatalf("got extension stack %v", out.ExtensionStack)
	}
}

func TestBuildExtensionCodecEmptyStack(t *testing.T) {
	c := Default()
	codec, err := c.BuildExtensionCodec()
	if err != nil {
		t.Fatal(err)
	}
	if codec != nil {
		t.Fatalf("expected nil codec for an empty extension stack, got %v", codec)
	}
}

func TestBuildExtensionCodecResolvesRegisteredNames(t *testing.T) {
	RegisterExtensionCodec("test-default", func() plan.ExtensionCodec {
		return plan.DefaultExtensionCodec{}
	})

	c := Default()
	c.ExtensionStack = []string{"test-default"}
	codec, err := c.BuildExtensionCodec()
	if err != nil {
		t.Fatal(err)
	}
	if codec == nil {
		t.Fatal("expected a composed codec, got nil")
	}
	// DefaultExtensionCodec.DecodeOperator always reports Unsupported;
	// this confirms the call is actually reaching the registered codec
	// rather than silently no-oping.
	if _, err := codec.DecodeOperator([]byte{0, 0, 0, 0}, nil); err == nil {
		t.Fatal("expected the composed codec to forward into the registered codec and fail there")
	}
}

func TestBuildExtensionCodecUnregisteredNameIsError(t *testing.T) {
	c := Default()
	c.ExtensionStack = []string{"does-not-exist"}
	if _, err := c.BuildExtensionCodec(); err == nil {
		t.Fatal("expected error for an unregistered extension codec name")
	}
}

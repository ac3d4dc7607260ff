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
	"github.com/sneller/physplan/schema"
)

func encodeSortRequirement(dst *ion.Buffer, st *ion.Symtab, order []pexpr.SortExpr) {
	if len(order) == 0 {
		return
	}
	dst.BeginField(st.Intern("sortrequirement"))
	pexpr.EncodeOrdering(dst, st, order)
}

func decodeSortRequirement(st *ion.Symtab, body []byte, sch schema.Schema, reg pexpr.FunctionRegistry, ext ExtensionCodec) ([]pexpr.SortExpr, error) {
	if body == nil {
		return nil, nil
	}
	order, err := pexpr.ParseOrderingAllowEmpty(st, body, sch)
	if err != nil {
		return nil, err
	}
	for _, o := range order {
		if err := pexpr.ResolveFuncs(o.Expr, reg, ext); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// CsvSink writes its input to delimiter-separated files.
type CsvSink struct {
	nonterminal
	Path            string
	HasHeader       bool
	Delimiter       byte
	Quote           byte
	SortRequirement []pexpr.SortExpr
}

func (c *CsvSink) Schema() schema.Schema { return c.input.Schema() }
func (c *CsvSink) wireTag() string       { return "datasink_csv" }

func (c *CsvSink) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("path"))
	dst.WriteString(c.Path)
	dst.BeginField(st.Intern("hasheader"))
	dst.WriteBool(c.HasHeader)
	dst.BeginField(st.Intern("delimiter"))
	dst.WriteString(byteToString(c.Delimiter))
	dst.BeginField(st.Intern("quote"))
	dst.WriteString(byteToString(c.Quote))
	encodeSortRequirement(dst, st, c.SortRequirement)
}

func decodeCsvSink(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "datasink_csv")
	if err != nil {
		return nil, err
	}
	c := &CsvSink{nonterminal: nonterminal{input: child}}
	var sortBody []byte
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "path":
			c.Path, _, err2 = ion.ReadString(v)
		case "hasheader":
			c.HasHeader, _, err2 = ion.ReadBool(v)
		case "delimiter":
			var s string
			s, _, err2 = ion.ReadString(v)
			if err2 == nil {
				c.Delimiter, err2 = stringToByte("delimiter", s)
			}
		case "quote":
			var s string
			s, _, err2 = ion.ReadString(v)
			if err2 == nil {
				c.Quote, err2 = stringToByte("quote", s)
			}
		case "sortrequirement":
			sortBody = v
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("datasink_csv", uerr)
	}
	c.SortRequirement, err = decodeSortRequirement(st, sortBody, child.Schema(), reg, ext)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// JsonSink writes its input as newline-delimited JSON.
type JsonSink struct {
	nonterminal
	Path            string
	SortRequirement []pexpr.SortExpr
}

func (j *JsonSink) Schema() schema.Schema { return j.input.Schema() }
func (j *JsonSink) wireTag() string       { return "datasink_json" }

func (j *JsonSink) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("path"))
	dst.WriteString(j.Path)
	encodeSortRequirement(dst, st, j.SortRequirement)
}

func decodeJsonSink(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "datasink_json")
	if err != nil {
		return nil, err
	}
	j := &JsonSink{nonterminal: nonterminal{input: child}}
	var sortBody []byte
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "path":
			j.Path, _, err2 = ion.ReadString(v)
		case "sortrequirement":
			sortBody = v
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("datasink_json", uerr)
	}
	j.SortRequirement, err = decodeSortRequirement(st, sortBody, child.Schema(), reg, ext)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// ParquetSink writes its input as Parquet, with a configurable
// compression codec and target row-group size.
type ParquetSink struct {
	nonterminal
	Path            string
	Compression     string
	RowGroupSize    int64
	SortRequirement []pexpr.SortExpr
}

func (p *ParquetSink) Schema() schema.Schema { return p.input.Schema() }
func (p *ParquetSink) wireTag() string       { return "datasink_parquet" }

func (p *ParquetSink) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("path"))
	dst.WriteString(p.Path)
	dst.BeginField(st.Intern("compression"))
	dst.WriteString(p.Compression)
	dst.BeginField(st.Intern("rowgroupsize"))
	dst.WriteInt(p.RowGroupSize)
	encodeSortRequirement(dst, st, p.SortRequirement)
}

func decodeParquetSink(st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	child, err := oneChild(children, "datasink_parquet")
	if err != nil {
		return nil, err
	}
	p := &ParquetSink{nonterminal: nonterminal{input: child}}
	var sortBody []byte
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "path":
			p.Path, _, err2 = ion.ReadString(v)
		case "compression":
			p.Compression, _, err2 = ion.ReadString(v)
		case "rowgroupsize":
			p.RowGroupSize, _, err2 = ion.ReadInt(v)
		case "sortrequirement":
			sortBody = v
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("datasink_parquet", uerr)
	}
	p.SortRequirement, err = decodeSortRequirement(st, sortBody, child.Schema(), reg, ext)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// decodeDataSink dispatches to the variant named by tag.
func decodeDataSink(tag string, st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	switch tag {
	case "datasink_csv":
		return decodeCsvSink(st, body, children, reg, ext)
	case "datasink_json":
		return decodeJsonSink(st, body, children, reg, ext)
	case "datasink_parquet":
		return decodeParquetSink(st, body, children, reg, ext)
	default:
		return nil, perrors.NewUnsupported(fmt.Sprintf("unrecognized data sink tag %q", tag))
	}
}

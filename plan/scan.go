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

// FileScanConfig is the configuration shared by every DataSource
// variant: where the files live, what the scan's output schema is,
// and an optional row limit. Each variant appends its own tail.
type FileScanConfig struct {
	ObjectStoreURL string
	FilePaths      []string
	OutputSchema   schema.Schema
	Limit          int64 // unbounded if -1
}

func (c *FileScanConfig) encode(dst *ion.Buffer, st *ion.Symtab) {
	dst.BeginField(st.Intern("objectstoreurl"))
	dst.WriteString(c.ObjectStoreURL)
	dst.BeginField(st.Intern("filepaths"))
	dst.BeginList(len(c.FilePaths))
	for _, p := range c.FilePaths {
		dst.WriteString(p)
	}
	dst.EndList()
	dst.BeginField(st.Intern("schema"))
	c.OutputSchema.Encode(dst, st)
	dst.BeginField(st.Intern("limit"))
	dst.WriteInt(c.Limit)
}

func decodeFileScanConfig(st *ion.Symtab, body []byte) (*FileScanConfig, error) {
	c := &FileScanConfig{Limit: unbounded}
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "objectstoreurl":
			c.ObjectStoreURL, _, err = ion.ReadString(v)
		case "filepaths":
			err = nil
			_, err = ion.UnpackList(v, func(item []byte) error {
				s, _, err := ion.ReadString(item)
				if err != nil {
					return err
				}
				c.FilePaths = append(c.FilePaths, s)
				return nil
			})
		case "schema":
			c.OutputSchema, _, err = schema.Decode(st, v)
		case "limit":
			c.Limit, _, err = ion.ReadInt(v)
		}
		return err
	})
	if uerr != nil {
		return nil, uerr
	}
	return c, nil
}

// CsvSource scans delimiter-separated files.
type CsvSource struct {
	Config           FileScanConfig
	HasHeader        bool
	Delimiter        byte
	Quote            byte
	Escape           *byte // optional
	Comment          *byte // optional
	NewlinesInValues bool
}

func (c *CsvSource) Children() []Op        { return nil }
func (c *CsvSource) Schema() schema.Schema { return c.Config.OutputSchema }
func (c *CsvSource) wireTag() string       { return "datasource_csv" }

func (c *CsvSource) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	c.Config.encode(dst, st)
	dst.BeginField(st.Intern("hasheader"))
	dst.WriteBool(c.HasHeader)
	dst.BeginField(st.Intern("delimiter"))
	dst.WriteString(byteToString(c.Delimiter))
	dst.BeginField(st.Intern("quote"))
	dst.WriteString(byteToString(c.Quote))
	if c.Escape != nil {
		dst.BeginField(st.Intern("escape"))
		dst.WriteString(byteToString(*c.Escape))
	}
	if c.Comment != nil {
		dst.BeginField(st.Intern("comment"))
		dst.WriteString(byteToString(*c.Comment))
	}
	dst.BeginField(st.Intern("newlinesinvalues"))
	dst.WriteBool(c.NewlinesInValues)
}

func decodeCsvSource(st *ion.Symtab, body []byte) (Op, error) {
	config, err := decodeFileScanConfig(st, body)
	if err != nil {
		return nil, perrors.WrapMalformed("datasource_csv", err)
	}
	c := &CsvSource{Config: *config}
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "hasheader":
			c.HasHeader, _, err2 = ion.ReadBool(v)
		case "delimiter":
			var s string
			s, _, err2 = ion.ReadString(v)
			if err2 == nil {
				var b byte
				b, err2 = stringToByte("delimiter", s)
				c.Delimiter = b
			}
		case "quote":
			var s string
			s, _, err2 = ion.ReadString(v)
			if err2 == nil {
				var b byte
				b, err2 = stringToByte("quote", s)
				c.Quote = b
			}
		case "escape":
			var s string
			s, _, err2 = ion.ReadString(v)
			if err2 == nil {
				var b byte
				b, err2 = stringToByte("escape", s)
				if err2 == nil {
					c.Escape = &b
				}
			}
		case "comment":
			var s string
			s, _, err2 = ion.ReadString(v)
			if err2 == nil {
				var b byte
				b, err2 = stringToByte("comment", s)
				if err2 == nil {
					c.Comment = &b
				}
			}
		case "newlinesinvalues":
			c.NewlinesInValues, _, err2 = ion.ReadBool(v)
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("datasource_csv", uerr)
	}
	return c, nil
}

// JsonSource scans newline-delimited JSON files; it carries nothing
// beyond the shared file-scan configuration.
type JsonSource struct {
	Config FileScanConfig
}

func (j *JsonSource) Children() []Op                    { return nil }
func (j *JsonSource) Schema() schema.Schema              { return j.Config.OutputSchema }
func (j *JsonSource) wireTag() string                    { return "datasource_json" }
func (j *JsonSource) encodeFields(dst *ion.Buffer, st *ion.Symtab) { j.Config.encode(dst, st) }

func decodeJsonSource(st *ion.Symtab, body []byte) (Op, error) {
	config, err := decodeFileScanConfig(st, body)
	if err != nil {
		return nil, perrors.WrapMalformed("datasource_json", err)
	}
	return &JsonSource{Config: *config}, nil
}

// AvroSource scans Avro container files; like JsonSource it carries
// nothing beyond the shared file-scan configuration.
type AvroSource struct {
	Config FileScanConfig
}

func (a *AvroSource) Children() []Op                    { return nil }
func (a *AvroSource) Schema() schema.Schema              { return a.Config.OutputSchema }
func (a *AvroSource) wireTag() string                    { return "datasource_avro" }
func (a *AvroSource) encodeFields(dst *ion.Buffer, st *ion.Symtab) { a.Config.encode(dst, st) }

func decodeAvroSource(st *ion.Symtab, body []byte) (Op, error) {
	config, err := decodeFileScanConfig(st, body)
	if err != nil {
		return nil, perrors.WrapMalformed("datasource_avro", err)
	}
	return &AvroSource{Config: *config}, nil
}

// ParquetSource scans Parquet files, optionally pushing a predicate
// down into the reader and carrying reader options as opaque
// key/value pairs. The predicate is parsed against
// Config.OutputSchema; FileScanConfig carries no projection vector.
type ParquetSource struct {
	Config    FileScanConfig
	Predicate pexpr.Expr // optional
	Options   map[string]string
}

func (p *ParquetSource) Children() []Op        { return nil }
func (p *ParquetSource) Schema() schema.Schema { return p.Config.OutputSchema }
func (p *ParquetSource) wireTag() string       { return "datasource_parquet" }

func (p *ParquetSource) encodeFields(dst *ion.Buffer, st *ion.Symtab) {
	p.Config.encode(dst, st)
	if p.Predicate != nil {
		dst.BeginField(st.Intern("predicate"))
		pexpr.Encode(p.Predicate, dst, st)
	}
	dst.BeginField(st.Intern("options"))
	dst.BeginList(len(p.Options))
	for k, v := range p.Options {
		dst.BeginStruct(-1)
		dst.BeginField(st.Intern("key"))
		dst.WriteString(k)
		dst.BeginField(st.Intern("value"))
		dst.WriteString(v)
		dst.EndStruct()
	}
	dst.EndList()
}

// decodeDataSource dispatches to the variant named by tag; all four
// variants share the same FileScanConfig decode and differ only in
// their own tail fields.
func decodeDataSource(tag string, st *ion.Symtab, body []byte, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	switch tag {
	case "datasource_csv":
		return decodeCsvSource(st, body)
	case "datasource_json":
		return decodeJsonSource(st, body)
	case "datasource_avro":
		return decodeAvroSource(st, body)
	case "datasource_parquet":
		return decodeParquetSource(st, body, reg, ext)
	default:
		return nil, perrors.NewUnsupported(fmt.Sprintf("unrecognized data source tag %q", tag))
	}
}

func decodeParquetSource(st *ion.Symtab, body []byte, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	config, err := decodeFileScanConfig(st, body)
	if err != nil {
		return nil, perrors.WrapMalformed("datasource_parquet", err)
	}
	p := &ParquetSource{Config: *config}
	var predicateBody []byte
	var err2 error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "predicate":
			predicateBody = v
		case "options":
			err2 = nil
			_, err2 = ion.UnpackList(v, func(item []byte) error {
				var k, val string
				var ierr error
				_, uerr := ion.UnpackStruct(st, item, func(f string, b []byte) error {
					switch f {
					case "key":
						k, _, ierr = ion.ReadString(b)
					case "value":
						val, _, ierr = ion.ReadString(b)
					}
					return ierr
				})
				if uerr != nil {
					return uerr
				}
				if p.Options == nil {
					p.Options = map[string]string{}
				}
				p.Options[k] = val
				return nil
			})
		}
		return err2
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("datasource_parquet", uerr)
	}
	if predicateBody != nil {
		p.Predicate, err = pexpr.ParseExpr(st, predicateBody, config.OutputSchema)
		if err != nil {
			return nil, err
		}
		if err := pexpr.ResolveFuncs(p.Predicate, reg, ext); err != nil {
			return nil, err
		}
	}
	return p, nil
}

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
	"github.com/sneller/physplan/plan/pexpr"
	"github.com/sneller/physplan/plan/perrors"
)

// Encode serializes root to a self-contained ion buffer. ext supplies
// the fallback for any operator that is not one of the built-in
// kinds; pass DefaultExtensionCodec{} if the plan is known to use
// only built-ins.
func Encode(root Op, ext ExtensionCodec) ([]byte, error) {
	var buf ion.Buffer
	var st ion.Symtab
	if err := encodeOp(&buf, &st, root, ext); err != nil {
		return nil, err
	}
	final := ion.Buffer{}
	st.Marshal(&final, true)
	final.UnsafeAppend(buf.Bytes())
	return final.Bytes(), nil
}

func encodeOp(dst *ion.Buffer, st *ion.Symtab, op Op, ext ExtensionCodec) error {
	if bi, ok := op.(builtinOp); ok {
		dst.BeginStruct(-1)
		settype(bi.wireTag(), dst, st)
		dst.BeginField(st.Intern("children"))
		dst.BeginList(len(op.Children()))
		for _, c := range op.Children() {
			if err := encodeOp(dst, st, c, ext); err != nil {
				return err
			}
		}
		dst.EndList()
		bi.encodeFields(dst, st)
		dst.EndStruct()
		return nil
	}
	return encodeExtension(dst, st, op, ext)
}

// Decode reconstructs a plan previously produced by Encode. reg
// resolves named scalar/aggregate/window functions; ext resolves
// operators and UDFs outside the built-in set. Either may be nil if
// the plan is known not to need them, but a nil ext turns any
// Extension envelope into an Unsupported error.
func Decode(buf []byte, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	var st ion.Symtab
	rest, err := st.Unmarshal(buf)
	if err != nil {
		return nil, perrors.WrapInternal(err)
	}
	return decodeOp(&st, rest, reg, ext)
}

func decodeOp(st *ion.Symtab, body []byte, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	var tag string
	var childrenBody []byte
	var err error
	_, uerr := ion.UnpackStruct(st, body, func(f string, v []byte) error {
		switch f {
		case "type":
			sym, _, e := ion.ReadSymbol(v)
			if e != nil {
				return e
			}
			name, ok := st.Lookup(sym)
			if !ok {
				return fmt.Errorf("symbol %d not found", sym)
			}
			tag = name
		case "children":
			childrenBody = v
		}
		return nil
	})
	if uerr != nil {
		return nil, perrors.WrapMalformed("plan", uerr)
	}
	if tag == "" {
		return nil, perrors.NewMalformed("missing \"type\" field in plan node")
	}
	var children []Op
	if childrenBody != nil {
		i := 0
		_, err = ion.UnpackList(childrenBody, func(item []byte) error {
			c, err := decodeOp(st, item, reg, ext)
			if err != nil {
				return fmt.Errorf("child #%d: %w", i, err)
			}
			children = append(children, c)
			i++
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if tag == "extension" {
		return decodeExtension(st, body, children, reg, ext)
	}
	return decodeBuiltin(tag, st, body, children, reg, ext)
}

// decodeBuiltin is the total decode-side dispatch table: one case per
// member of the closed operator set in the spec's §3 Data Model.
func decodeBuiltin(tag string, st *ion.Symtab, body []byte, children []Op, reg pexpr.FunctionRegistry, ext ExtensionCodec) (Op, error) {
	switch tag {
	case "projection":
		return decodeProjection(st, body, children, reg, ext)
	case "filter":
		return decodeFilter(st, body, children, reg, ext)
	case "aggregate":
		return decodeAggregate(st, body, children, reg, ext)
	case "hashjoin":
		return decodeHashJoin(st, body, children, reg, ext)
	case "symmetrichashjoin":
		return decodeSymmetricHashJoin(st, body, children, reg, ext)
	case "crossjoin":
		return decodeCrossJoin(children)
	case "nestedloopjoin":
		return decodeNestedLoopJoin(st, body, children, reg, ext)
	case "sort":
		return decodeSort(st, body, children, reg, ext)
	case "sortpreservingmerge":
		return decodeSortPreservingMerge(st, body, children, reg, ext)
	case "coalescebatches":
		return decodeCoalesceBatches(st, body, children)
	case "coalescepartitions":
		return decodeCoalescePartitions(st, body, children)
	case "repartition":
		return decodeRepartition(st, body, children, reg, ext)
	case "globallimit":
		return decodeGlobalLimit(st, body, children)
	case "locallimit":
		return decodeLocalLimit(st, body, children)
	case "union":
		return decodeUnion(children)
	case "interleave":
		return decodeInterleave(children)
	case "empty":
		return decodeEmpty(st, body)
	case "placeholderrow":
		return decodePlaceholderRow(st, body)
	case "explain":
		return decodeExplain(st, body, children)
	case "analyze":
		return decodeAnalyze(st, body, children)
	case "window":
		return decodeWindow(st, body, children, reg, ext)
	case "unnest":
		return decodeUnnest(st, body, children)
	case "cooperative":
		return decodeCooperative(children)
	case "datasource_csv", "datasource_json", "datasource_parquet", "datasource_avro":
		return decodeDataSource(tag, st, body, reg, ext)
	case "datasink_csv", "datasink_json", "datasink_parquet":
		return decodeDataSink(tag, st, body, children, reg, ext)
	default:
		return nil, perrors.NewUnsupported(fmt.Sprintf("unrecognized built-in operator tag %q", tag))
	}
}

func oneChild(children []Op, tag string) (Op, error) {
	if len(children) != 1 {
		return nil, perrors.NewMalformed(fmt.Sprintf("%s: expected exactly one child, got %d", tag, len(children)))
	}
	return children[0], nil
}

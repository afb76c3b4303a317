// Package hlxc implements the `.hlxc` data file: a secondary, analytics-
// facing export of a compiled program's declarations and properties as an
// Arrow IPC columnar stream, ZSTD-compressed. It shares the same codegen
// input (a lowered ir.Program) as pkg/binary but is not part of the
// lex/parse/analyze/evaluate/codegen core: no loader round-trips a
// .hlxc file back into an AST, it exists purely for tools (notebooks,
// columnar query engines) to inspect compiled configuration at scale.
package hlxc

import (
	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/memory"

	"github.com/cyber-boost/helix/pkg/ir"
)

// Row is one (declaration, property) pair flattened out of an ir.Program.
// Composite values (arrays, objects, operator calls) serialize to their
// canonical rendered text rather than additional Arrow columns: a
// Property-as-struct Arrow schema would need a union type per value kind,
// which is more machinery than a secondary export format warrants. Tools
// that need the structured value read the companion .hlxb artifact.
type Row struct {
	DeclKind  string
	DeclName  string
	Key       string
	ValueTag  uint8
	ValueText string
}

// Schema is the fixed Arrow schema every .hlxc stream uses.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "decl_kind", Type: arrow.BinaryTypes.String},
	{Name: "decl_name", Type: arrow.BinaryTypes.String},
	{Name: "key", Type: arrow.BinaryTypes.String},
	{Name: "value_tag", Type: arrow.PrimitiveTypes.Uint8},
	{Name: "value_text", Type: arrow.BinaryTypes.String},
}, nil)

// ToRows flattens every declaration's properties into Row form, in
// declaration and property order.
func ToRows(prog *ir.Program) []Row {
	var rows []Row
	for _, d := range prog.Decls {
		name := ""
		if d.NameID >= 0 {
			name = prog.Strings.Get(d.NameID)
		}
		for _, p := range d.Properties {
			rows = append(rows, Row{
				DeclKind:  d.Kind.String(),
				DeclName:  name,
				Key:       prog.Strings.Get(p.KeyID),
				ValueTag:  uint8(p.Value.Kind),
				ValueText: p.Value.String(prog.Strings),
			})
		}
	}
	return rows
}

// ToRecord builds one Arrow record batch from rows using mem.
func ToRecord(mem memory.Allocator, rows []Row) arrow.Record {
	declKind := array.NewStringBuilder(mem)
	defer declKind.Release()
	declName := array.NewStringBuilder(mem)
	defer declName.Release()
	key := array.NewStringBuilder(mem)
	defer key.Release()
	valueTag := array.NewUint8Builder(mem)
	defer valueTag.Release()
	valueText := array.NewStringBuilder(mem)
	defer valueText.Release()

	for _, r := range rows {
		declKind.Append(r.DeclKind)
		declName.Append(r.DeclName)
		key.Append(r.Key)
		valueTag.Append(r.ValueTag)
		valueText.Append(r.ValueText)
	}

	cols := []arrow.Array{
		declKind.NewArray(), declName.NewArray(), key.NewArray(),
		valueTag.NewArray(), valueText.NewArray(),
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return array.NewRecord(Schema, cols, int64(len(rows)))
}

// RowsFromRecord is ToRecord's inverse, reading every row back out of an
// Arrow record batch built from Schema.
func RowsFromRecord(rec arrow.Record) []Row {
	declKind := rec.Column(0).(*array.String)
	declName := rec.Column(1).(*array.String)
	key := rec.Column(2).(*array.String)
	valueTag := rec.Column(3).(*array.Uint8)
	valueText := rec.Column(4).(*array.String)

	rows := make([]Row, rec.NumRows())
	for i := range rows {
		rows[i] = Row{
			DeclKind:  declKind.Value(i),
			DeclName:  declName.Value(i),
			Key:       key.Value(i),
			ValueTag:  valueTag.Value(i),
			ValueText: valueText.Value(i),
		}
	}
	return rows
}

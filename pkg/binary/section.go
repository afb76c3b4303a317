package binary

import (
	"encoding/binary"
	"fmt"

	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/ir"
	"github.com/cyber-boost/helix/pkg/token"
)

// ValueTag identifies the shape of an encoded Property value.
//
// Tags 0-9 are the literal tag assignments from the binary format table.
// That table's tag 10 was named "EnvRef" for a standalone env-reference
// expression node; every `@name(...)` form, env references included, is
// one AtOperatorCall node here, with env-vs-section disambiguation
// deferred to semantic analysis. Tag 10 is repurposed here for
// MarkerExpr (`!NAME!`), the closest surviving analogue of a deferred
// external reference. Tags 11-13 are additions for the three IR
// expression kinds the table didn't enumerate (UnaryOp, bare Identifier,
// Pipeline).
type ValueTag uint8

const (
	TagNull ValueTag = iota
	TagBool
	TagNumber
	TagString
	TagDuration
	TagArray
	TagObject
	TagCall
	TagBinaryOp
	TagVariable
	TagMarker
	TagUnaryOp
	TagIdentifier
	TagPipeline
)

// SectionKindTag is the u16 kind tag prefixing each encoded section,
// mirroring ast.DeclarationKind.
type SectionKindTag = uint16

func declKindTag(k ast.DeclarationKind) SectionKindTag { return SectionKindTag(k) }

func tagToDeclKind(t SectionKindTag) ast.DeclarationKind { return ast.DeclarationKind(t) }

// encodeSections writes the Sections payload: every Decl in prog, each as
// (u16 kind_tag, u32 symbol_id, u32 prop_count, properties...). symbol_id
// is the decl's interned name id, or the sentinel 0xFFFFFFFF if anonymous.
// It also returns, per decl, the byte offset at which its section begins
// within the returned buffer, for the symbol table.
func encodeSections(prog *ir.Program) (buf []byte, offsets []uint64) {
	offsets = make([]uint64, len(prog.Decls))
	for i, d := range prog.Decls {
		offsets[i] = uint64(len(buf))
		buf = append(buf, encodeSection(d, prog.Strings)...)
	}
	return buf, offsets
}

const anonSymbolID = 0xFFFFFFFF

func encodeSection(d ir.Decl, pool *ir.StringPool) []byte {
	head := make([]byte, 2+4+4)
	binary.LittleEndian.PutUint16(head[0:2], declKindTag(d.Kind))
	symID := uint32(anonSymbolID)
	if d.NameID >= 0 {
		symID = uint32(d.NameID)
	}
	binary.LittleEndian.PutUint32(head[2:6], symID)
	binary.LittleEndian.PutUint32(head[6:10], uint32(len(d.Properties)))

	buf := head
	for _, p := range d.Properties {
		buf = append(buf, encodeProperty(p.KeyID, p.Value, pool)...)
	}
	return buf
}

func encodeProperty(keyID int, v ir.Expr, pool *ir.StringPool) []byte {
	head := make([]byte, 4+1)
	binary.LittleEndian.PutUint32(head[0:4], uint32(keyID))
	tag, body := encodeValue(v, pool)
	head[4] = byte(tag)
	return append(head, body...)
}

func putU32(id int) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(id))
	return b
}

// encodeValue returns the value tag and the tag-specific payload bytes for
// one IR expression. Composite tags (Array, Object, Call, BinaryOp,
// UnaryOp) recurse, so an arbitrarily nested expression tree serializes
// to one contiguous byte run.
func encodeValue(v ir.Expr, pool *ir.StringPool) (ValueTag, []byte) {
	switch v.Kind {
	case ir.EkNull:
		return TagNull, nil
	case ir.EkBool:
		if v.BoolV {
			return TagBool, []byte{1}
		}
		return TagBool, []byte{0}
	case ir.EkNumber:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, float64Bits(v.NumV))
		return TagNumber, b
	case ir.EkString:
		return TagString, putU32(v.StrID)
	case ir.EkDuration:
		b := make([]byte, 9)
		binary.LittleEndian.PutUint64(b[0:8], uint64(v.DurMs))
		b[8] = byte(v.DurUnit)
		return TagDuration, b
	case ir.EkIdentifier:
		return TagIdentifier, putU32(v.StrID)
	case ir.EkVariable:
		return TagVariable, putU32(v.StrID)
	case ir.EkMarker:
		return TagMarker, putU32(v.StrID)
	case ir.EkArray:
		buf := putU32(len(v.Elements))
		for _, el := range v.Elements {
			tag, body := encodeValue(el, pool)
			buf = append(buf, byte(tag))
			buf = append(buf, body...)
		}
		return TagArray, buf
	case ir.EkObject:
		buf := putU32(len(v.Fields))
		for _, f := range v.Fields {
			buf = append(buf, putU32(f.KeyID)...)
			tag, body := encodeValue(f.Value, pool)
			buf = append(buf, byte(tag))
			buf = append(buf, body...)
		}
		return TagObject, buf
	case ir.EkCall:
		memberID := int32(-1)
		if v.MemberID >= 0 {
			memberID = int32(v.MemberID)
		}
		buf := putU32(v.NameID)
		mb := make([]byte, 4)
		binary.LittleEndian.PutUint32(mb, uint32(memberID))
		buf = append(buf, mb...)
		opaque := byte(0)
		if v.Opaque {
			opaque = 1
		}
		buf = append(buf, opaque)
		buf = append(buf, putU32(len(v.Positional))...)
		for _, p := range v.Positional {
			tag, body := encodeValue(p, pool)
			buf = append(buf, byte(tag))
			buf = append(buf, body...)
		}
		buf = append(buf, putU32(len(v.Named))...)
		for _, f := range v.Named {
			buf = append(buf, putU32(f.KeyID)...)
			tag, body := encodeValue(f.Value, pool)
			buf = append(buf, byte(tag))
			buf = append(buf, body...)
		}
		return TagCall, buf
	case ir.EkBinary:
		buf := []byte{byte(v.BinOp)}
		lt, lb := encodeValue(*v.Left, pool)
		buf = append(buf, byte(lt))
		buf = append(buf, lb...)
		rt, rb := encodeValue(*v.Right, pool)
		buf = append(buf, byte(rt))
		buf = append(buf, rb...)
		return TagBinaryOp, buf
	case ir.EkUnary:
		buf := []byte{byte(v.UnOp)}
		ot, ob := encodeValue(*v.Operand, pool)
		buf = append(buf, byte(ot))
		buf = append(buf, ob...)
		return TagUnaryOp, buf
	case ir.EkPipeline:
		buf := putU32(len(v.Stages))
		for _, s := range v.Stages {
			buf = append(buf, putU32(s)...)
		}
		return TagPipeline, buf
	default:
		return TagNull, nil
	}
}

// decodeValue is encodeValue's inverse, returning the decoded Expr and the
// number of bytes consumed from buf starting at the tag byte.
func decodeValue(buf []byte) (ir.Expr, int, error) {
	if len(buf) < 1 {
		return ir.Expr{}, 0, fmt.Errorf("binary: truncated value tag")
	}
	tag := ValueTag(buf[0])
	rest := buf[1:]
	consumed := 1

	need := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("binary: truncated value body for tag %d", tag)
		}
		return nil
	}

	switch tag {
	case TagNull:
		return ir.Expr{Kind: ir.EkNull}, consumed, nil
	case TagBool:
		if err := need(1); err != nil {
			return ir.Expr{}, 0, err
		}
		return ir.Expr{Kind: ir.EkBool, BoolV: rest[0] == 1}, consumed + 1, nil
	case TagNumber:
		if err := need(8); err != nil {
			return ir.Expr{}, 0, err
		}
		return ir.Expr{Kind: ir.EkNumber, NumV: float64FromBits(binary.LittleEndian.Uint64(rest[0:8]))}, consumed + 8, nil
	case TagString:
		if err := need(4); err != nil {
			return ir.Expr{}, 0, err
		}
		id := int(binary.LittleEndian.Uint32(rest[0:4]))
		return ir.Expr{Kind: ir.EkString, StrID: id}, consumed + 4, nil
	case TagDuration:
		if err := need(9); err != nil {
			return ir.Expr{}, 0, err
		}
		ms := int64(binary.LittleEndian.Uint64(rest[0:8]))
		unit := token.DurationUnit(rest[8])
		return ir.Expr{Kind: ir.EkDuration, DurMs: ms, DurUnit: unit}, consumed + 9, nil
	case TagIdentifier, TagVariable, TagMarker:
		if err := need(4); err != nil {
			return ir.Expr{}, 0, err
		}
		id := int(binary.LittleEndian.Uint32(rest[0:4]))
		kind := ir.EkIdentifier
		if tag == TagVariable {
			kind = ir.EkVariable
		} else if tag == TagMarker {
			kind = ir.EkMarker
		}
		return ir.Expr{Kind: kind, StrID: id}, consumed + 4, nil
	case TagArray:
		if err := need(4); err != nil {
			return ir.Expr{}, 0, err
		}
		n := int(binary.LittleEndian.Uint32(rest[0:4]))
		off := 4
		elems := make([]ir.Expr, 0, n)
		for i := 0; i < n; i++ {
			el, used, err := decodeValue(rest[off:])
			if err != nil {
				return ir.Expr{}, 0, err
			}
			elems = append(elems, el)
			off += used
		}
		return ir.Expr{Kind: ir.EkArray, Elements: elems}, consumed + off, nil
	case TagObject:
		if err := need(4); err != nil {
			return ir.Expr{}, 0, err
		}
		n := int(binary.LittleEndian.Uint32(rest[0:4]))
		off := 4
		fields := make([]ir.Field, 0, n)
		for i := 0; i < n; i++ {
			if len(rest) < off+4 {
				return ir.Expr{}, 0, fmt.Errorf("binary: truncated object field key")
			}
			keyID := int(binary.LittleEndian.Uint32(rest[off : off+4]))
			off += 4
			val, used, err := decodeValue(rest[off:])
			if err != nil {
				return ir.Expr{}, 0, err
			}
			fields = append(fields, ir.Field{KeyID: keyID, Value: val})
			off += used
		}
		return ir.Expr{Kind: ir.EkObject, Fields: fields}, consumed + off, nil
	case TagCall:
		if err := need(13); err != nil {
			return ir.Expr{}, 0, err
		}
		nameID := int(binary.LittleEndian.Uint32(rest[0:4]))
		memberID := int32(binary.LittleEndian.Uint32(rest[4:8]))
		opaque := rest[8] == 1
		off := 9
		nPos := int(binary.LittleEndian.Uint32(rest[off : off+4]))
		off += 4
		positional := make([]ir.Expr, 0, nPos)
		for i := 0; i < nPos; i++ {
			p, used, err := decodeValue(rest[off:])
			if err != nil {
				return ir.Expr{}, 0, err
			}
			positional = append(positional, p)
			off += used
		}
		if len(rest) < off+4 {
			return ir.Expr{}, 0, fmt.Errorf("binary: truncated call named count")
		}
		nNamed := int(binary.LittleEndian.Uint32(rest[off : off+4]))
		off += 4
		named := make([]ir.Field, 0, nNamed)
		for i := 0; i < nNamed; i++ {
			if len(rest) < off+4 {
				return ir.Expr{}, 0, fmt.Errorf("binary: truncated call named key")
			}
			keyID := int(binary.LittleEndian.Uint32(rest[off : off+4]))
			off += 4
			val, used, err := decodeValue(rest[off:])
			if err != nil {
				return ir.Expr{}, 0, err
			}
			named = append(named, ir.Field{KeyID: keyID, Value: val})
			off += used
		}
		mID := -1
		if memberID >= 0 {
			mID = int(memberID)
		}
		return ir.Expr{
			Kind: ir.EkCall, NameID: nameID, MemberID: mID,
			Positional: positional, Named: named, Opaque: opaque,
		}, consumed + off, nil
	case TagBinaryOp:
		if err := need(1); err != nil {
			return ir.Expr{}, 0, err
		}
		op := ast.BinaryOperator(rest[0])
		left, used, err := decodeValue(rest[1:])
		if err != nil {
			return ir.Expr{}, 0, err
		}
		off := 1 + used
		right, used2, err := decodeValue(rest[off:])
		if err != nil {
			return ir.Expr{}, 0, err
		}
		return ir.Expr{Kind: ir.EkBinary, BinOp: op, Left: &left, Right: &right}, consumed + off + used2, nil
	case TagUnaryOp:
		if err := need(1); err != nil {
			return ir.Expr{}, 0, err
		}
		op := ast.UnaryOperator(rest[0])
		operand, used, err := decodeValue(rest[1:])
		if err != nil {
			return ir.Expr{}, 0, err
		}
		return ir.Expr{Kind: ir.EkUnary, UnOp: op, Operand: &operand}, consumed + 1 + used, nil
	case TagPipeline:
		if err := need(4); err != nil {
			return ir.Expr{}, 0, err
		}
		n := int(binary.LittleEndian.Uint32(rest[0:4]))
		off := 4
		stages := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if len(rest) < off+4 {
				return ir.Expr{}, 0, fmt.Errorf("binary: truncated pipeline stage")
			}
			stages = append(stages, int(binary.LittleEndian.Uint32(rest[off:off+4])))
			off += 4
		}
		return ir.Expr{Kind: ir.EkPipeline, Stages: stages}, consumed + off, nil
	default:
		return ir.Expr{}, 0, fmt.Errorf("binary: unknown value tag %d", tag)
	}
}

// decodeSection reads one (kind_tag, symbol_id, prop_count, properties...)
// section starting at buf[0], returning a DecodedSection and the number of
// bytes consumed.
func decodeSection(buf []byte) (DecodedSection, int, error) {
	if len(buf) < 10 {
		return DecodedSection{}, 0, fmt.Errorf("binary: truncated section header")
	}
	kind := tagToDeclKind(binary.LittleEndian.Uint16(buf[0:2]))
	symID := binary.LittleEndian.Uint32(buf[2:6])
	nProps := int(binary.LittleEndian.Uint32(buf[6:10]))
	off := 10

	nameID := -1
	if symID != anonSymbolID {
		nameID = int(symID)
	}

	props := make([]ir.Property, 0, nProps)
	for i := 0; i < nProps; i++ {
		if len(buf) < off+4+1 {
			return DecodedSection{}, 0, fmt.Errorf("binary: truncated property header")
		}
		keyID := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		val, used, err := decodeValue(buf[off:])
		if err != nil {
			return DecodedSection{}, 0, err
		}
		props = append(props, ir.Property{KeyID: keyID, Value: val})
		off += used
	}
	return DecodedSection{Kind: kind, NameID: nameID, Properties: props}, off, nil
}

// DecodedSection is one section read back from a compiled artifact: the
// declaration kind, its interned name id (or -1 if anonymous), and its
// ordered properties.
type DecodedSection struct {
	Kind       ast.DeclarationKind
	NameID     int
	Properties []ir.Property
}

package binary

import (
	"encoding/binary"
	"fmt"

	"github.com/cyber-boost/helix/pkg/ir"
)

// Symbol is one entry of the symbol table: a declaration's interned name,
// its declaration kind, and the byte offset of its section within the
// Sections payload.
type Symbol struct {
	NameStringID  uint32
	KindTag       uint16
	SectionOffset uint64
}

// buildSymbolTable pairs each decl in prog with its encoded section
// offset (as produced by encodeSections) into the Symbol list the binary
// format's SymbolTable section stores. Anonymous declarations (NameID ==
// -1, e.g. a bare top-level `memory { }` block) are skipped: the symbol
// table exists to resolve `@name` references, and an anonymous
// declaration has no name to resolve.
func buildSymbolTable(prog *ir.Program, sectionOffsets []uint64) []Symbol {
	var syms []Symbol
	for i, d := range prog.Decls {
		if d.NameID < 0 {
			continue
		}
		syms = append(syms, Symbol{
			NameStringID:  uint32(d.NameID),
			KindTag:       uint16(d.Kind),
			SectionOffset: sectionOffsets[i],
		})
	}
	return syms
}

// encodeSymbolTable writes a u32 count followed by that many (u32
// string_id, u16 kind_tag, u64 section_offset) entries.
func encodeSymbolTable(syms []Symbol) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(syms)))
	for _, s := range syms {
		entry := make([]byte, 4+2+8)
		binary.LittleEndian.PutUint32(entry[0:4], s.NameStringID)
		binary.LittleEndian.PutUint16(entry[4:6], s.KindTag)
		binary.LittleEndian.PutUint64(entry[6:14], s.SectionOffset)
		buf = append(buf, entry...)
	}
	return buf
}

// decodeSymbolTable is encodeSymbolTable's inverse, returning the decoded
// symbols and the number of bytes consumed from buf.
func decodeSymbolTable(buf []byte) ([]Symbol, int, error) {
	if len(buf) < 4 {
		return nil, 0, fmt.Errorf("binary: truncated symbol table count")
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	off := 4
	out := make([]Symbol, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+14 > len(buf) {
			return nil, 0, fmt.Errorf("binary: truncated symbol table entry %d", i)
		}
		out = append(out, Symbol{
			NameStringID:  binary.LittleEndian.Uint32(buf[off : off+4]),
			KindTag:       binary.LittleEndian.Uint16(buf[off+4 : off+6]),
			SectionOffset: binary.LittleEndian.Uint64(buf[off+6 : off+14]),
		})
		off += 14
	}
	return out, off, nil
}

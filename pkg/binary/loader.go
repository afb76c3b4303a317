package binary

import (
	"fmt"
)

// Loader exposes a compiled artifact without re-running the lexer,
// parser, or semantic analyzer: the string pool is copied into Go strings
// once at Load time (lookups do not alias the payload), and sections are
// read lazily via SectionIterator rather than all decoded up front.
type Loader struct {
	raw        []byte // the whole file, as handed to Load (mmap'd or read)
	header     Header
	payload    []byte // decompressed; == raw[HeaderSize:] when Compression is None
	strings    []string
	symbols    []Symbol
	byName     map[string]Symbol
	sectionBuf []byte
	closer     func() error
}

// Load parses and validates a compiled artifact already resident in
// memory (e.g. read from disk, or mmap'd by Open). It verifies the magic
// and format version, verifies the CRC-32 when the header marks one
// present, decompresses the payload if needed, then decodes the StringPool
// and SymbolTable sections eagerly (they are small and needed for every
// subsequent lookup) while leaving the Sections payload for on-demand
// iteration.
func Load(raw []byte) (*Loader, error) {
	h, err := DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) < h.TotalLength {
		return nil, fmt.Errorf("binary: truncated file: header claims %d bytes, have %d", h.TotalLength, len(raw))
	}
	if h.Flags.ChecksumPresent {
		if got := checksumFile(raw[:h.TotalLength]); got != h.CRC32 {
			return nil, fmt.Errorf("binary: CRC mismatch: file corrupt (want %08x, got %08x)", h.CRC32, got)
		}
	}

	compressed := raw[HeaderSize:h.TotalLength]
	payload, err := decompressPayload(h.Flags.Compression, compressed)
	if err != nil {
		return nil, fmt.Errorf("binary: decompress payload: %w", err)
	}

	if h.SymbolTableOff > uint64(len(payload)) || h.SectionsOff > uint64(len(payload)) || h.StringPoolOff > h.SymbolTableOff {
		return nil, fmt.Errorf("binary: corrupt section offsets")
	}

	strs, consumed, err := decodeStringPool(payload[h.StringPoolOff:h.SymbolTableOff])
	if err != nil {
		return nil, fmt.Errorf("binary: decode string pool: %w", err)
	}
	if uint64(consumed) != h.SymbolTableOff-h.StringPoolOff {
		return nil, fmt.Errorf("binary: string pool length mismatch with header offsets")
	}

	syms, consumed, err := decodeSymbolTable(payload[h.SymbolTableOff:h.SectionsOff])
	if err != nil {
		return nil, fmt.Errorf("binary: decode symbol table: %w", err)
	}
	if uint64(consumed) != h.SectionsOff-h.SymbolTableOff {
		return nil, fmt.Errorf("binary: symbol table length mismatch with header offsets")
	}

	byName := make(map[string]Symbol, len(syms))
	for _, s := range syms {
		if int(s.NameStringID) < len(strs) {
			byName[strs[s.NameStringID]] = s
		}
	}

	return &Loader{
		raw: raw, header: h, payload: payload,
		strings: strs, symbols: syms, byName: byName,
		sectionBuf: payload[h.SectionsOff:],
	}, nil
}

// Close releases any resources backing the loader (the mmap, if Open
// created one). Loaders built via Load directly have nothing to release.
func (l *Loader) Close() error {
	if l.closer != nil {
		return l.closer()
	}
	return nil
}

// String returns the interned string at id, or "" if id is out of range.
// The returned string is a copy made at Load time; it does not alias the
// loader's payload buffer and stays valid after Close.
func (l *Loader) String(id int) string {
	if id < 0 || id >= len(l.strings) {
		return ""
	}
	return l.strings[id]
}

// Symbol looks up a declaration's symbol table entry by name.
func (l *Loader) Symbol(name string) (Symbol, bool) {
	s, ok := l.byName[name]
	return s, ok
}

// Section decodes and returns the section at sym's recorded offset.
func (l *Loader) Section(sym Symbol) (DecodedSection, error) {
	if sym.SectionOffset >= uint64(len(l.sectionBuf)) {
		return DecodedSection{}, fmt.Errorf("binary: symbol offset out of range")
	}
	sec, _, err := decodeSection(l.sectionBuf[sym.SectionOffset:])
	return sec, err
}

// SectionIterator walks every section in the Sections payload in
// declaration order, decoding one at a time rather than materializing the
// whole program up front.
type SectionIterator struct {
	buf []byte
	off int
}

// Sections returns an iterator over every section in the artifact,
// including anonymous declarations that have no symbol table entry.
func (l *Loader) Sections() *SectionIterator {
	return &SectionIterator{buf: l.sectionBuf}
}

// Next decodes the next section, returning ok=false once the payload is
// exhausted.
func (it *SectionIterator) Next() (sec DecodedSection, ok bool, err error) {
	if it.off >= len(it.buf) {
		return DecodedSection{}, false, nil
	}
	sec, used, err := decodeSection(it.buf[it.off:])
	if err != nil {
		return DecodedSection{}, false, err
	}
	it.off += used
	return sec, true, nil
}

// verifyCRCOnly is exposed for tooling (e.g. a `helix verify` subcommand)
// that wants to check artifact integrity without fully loading it.
func verifyCRCOnly(raw []byte) error {
	h, err := DecodeHeader(raw)
	if err != nil {
		return err
	}
	if !h.Flags.ChecksumPresent {
		return nil
	}
	if uint64(len(raw)) < h.TotalLength {
		return fmt.Errorf("binary: truncated file")
	}
	if got := checksumFile(raw[:h.TotalLength]); got != h.CRC32 {
		return fmt.Errorf("binary: CRC mismatch: file corrupt")
	}
	return nil
}

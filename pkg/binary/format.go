// Package binary implements the byte-exact compiled artifact format: a
// fixed header, an interned string pool, a symbol table mapping every
// declaration to its byte offset, and a sequence of declaration sections
// built from (key, tagged value) properties. Compile produces this format
// from a lowered ir.Program; Loader reads it back without re-parsing
// source text.
package binary

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/funvibe/funbit/pkg/funbit"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Magic identifies a compiled Helix artifact.
var Magic = [4]byte{'H', 'L', 'X', 'B'}

// FormatVersion is the current on-disk format version.
const FormatVersion uint16 = 1

// CompressionType is the payload compression scheme, packed into the low
// three bits of the header Flags field.
type CompressionType uint8

const (
	CompressNone CompressionType = iota
	CompressLZ4
	CompressGzip
	CompressZstd
)

// OptLevel mirrors the ir.Optimize level the payload was built at, packed
// into bits 4-5 of Flags. It travels with the artifact purely as a
// diagnostic label; the loader never re-optimizes.
type OptLevel uint8

// Flags bit layout, built and read with funbit rather than hand-rolled
// shifts: bits 0-2 compression type, bit 3 checksum-present, bits 4-5 opt
// level, bits 6-15 reserved. The field is a full 16 bits wide on disk so
// the reserved range has room to grow without another format version bump.
type Flags struct {
	Compression     CompressionType
	ChecksumPresent bool
	OptLevel        OptLevel
}

// Encode packs f into a 16-bit field using a funbit builder.
func (f Flags) Encode() uint16 {
	// Segments are appended most-significant first, so the reserved bits
	// come first and the compression type lands in bits 0-2.
	b := funbit.NewBuilder()
	funbit.AddInteger(b, 0, funbit.WithSize(10))
	funbit.AddInteger(b, int(f.OptLevel), funbit.WithSize(2))
	checksumBit := 0
	if f.ChecksumPresent {
		checksumBit = 1
	}
	funbit.AddInteger(b, checksumBit, funbit.WithSize(1))
	funbit.AddInteger(b, int(f.Compression), funbit.WithSize(3))
	bs, err := funbit.Build(b)
	if err != nil {
		// Fixed-width integer fields summing to 16 bits never fail to build.
		panic(fmt.Sprintf("binary: flags encode: %v", err))
	}
	encoded := bs.ToBytes()
	return binary.BigEndian.Uint16(encoded)
}

// DecodeFlags unpacks a 16-bit flags field with a funbit matcher.
func DecodeFlags(v uint16) (Flags, error) {
	var compression, checksum, opt, reserved int
	m := funbit.NewMatcher()
	funbit.Integer(m, &reserved, funbit.WithSize(10))
	funbit.Integer(m, &opt, funbit.WithSize(2))
	funbit.Integer(m, &checksum, funbit.WithSize(1))
	funbit.Integer(m, &compression, funbit.WithSize(3))

	wb := funbit.NewBuilder()
	funbit.AddInteger(wb, int(v), funbit.WithSize(16))
	bs, err := funbit.Build(wb)
	if err != nil {
		return Flags{}, fmt.Errorf("binary: flags decode: %w", err)
	}
	if _, err := funbit.Match(m, bs); err != nil {
		return Flags{}, fmt.Errorf("binary: flags decode: %w", err)
	}
	return Flags{
		Compression:     CompressionType(compression),
		ChecksumPresent: checksum == 1,
		OptLevel:        OptLevel(opt),
	}, nil
}

// Header is the fixed-size preamble described by the binary format:
// magic, version, flags, total length, three section offsets (relative to
// the start of the decompressed payload, i.e. byte 0 is the first payload
// byte, not the first file byte), and a CRC-32 computed over the whole
// file with this field zeroed.
type Header struct {
	Version        uint16
	Flags          Flags
	TotalLength    uint64
	StringPoolOff  uint64
	SymbolTableOff uint64
	SectionsOff    uint64
	CRC32          uint32
}

// HeaderSize is the encoded byte length of Header: magic(4) + version(2) +
// flags(2) + total length(8) + string pool offset(8) + symbol table
// offset(8) + sections offset(8) + CRC-32(4).
const HeaderSize = 4 + 2 + 2 + 8 + 8 + 8 + 8 + 4

// Encode writes h in the layout above. The CRC field is written as
// whatever h.CRC32 currently holds; callers compute it over the full file
// with the field zeroed first, as checksumFile does.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags.Encode())
	binary.LittleEndian.PutUint64(buf[8:16], h.TotalLength)
	binary.LittleEndian.PutUint64(buf[16:24], h.StringPoolOff)
	binary.LittleEndian.PutUint64(buf[24:32], h.SymbolTableOff)
	binary.LittleEndian.PutUint64(buf[32:40], h.SectionsOff)
	binary.LittleEndian.PutUint32(buf[40:44], h.CRC32)
	return buf
}

// DecodeHeader reads a Header from the front of buf and verifies the magic.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("binary: truncated header: need %d bytes, have %d", HeaderSize, len(buf))
	}
	if !bytes.Equal(buf[0:4], Magic[:]) {
		return Header{}, fmt.Errorf("binary: bad magic %q", buf[0:4])
	}
	flags, err := DecodeFlags(binary.LittleEndian.Uint16(buf[6:8]))
	if err != nil {
		return Header{}, err
	}
	h := Header{
		Version:        binary.LittleEndian.Uint16(buf[4:6]),
		Flags:          flags,
		TotalLength:    binary.LittleEndian.Uint64(buf[8:16]),
		StringPoolOff:  binary.LittleEndian.Uint64(buf[16:24]),
		SymbolTableOff: binary.LittleEndian.Uint64(buf[24:32]),
		SectionsOff:    binary.LittleEndian.Uint64(buf[32:40]),
		CRC32:          binary.LittleEndian.Uint32(buf[40:44]),
	}
	if h.Version != FormatVersion {
		return Header{}, fmt.Errorf("binary: unsupported format version %d", h.Version)
	}
	return h, nil
}

// checksumFile returns the CRC-32 of file with the header's CRC32 field
// (bytes 40:44) zeroed, matching the value a writer must have computed.
func checksumFile(file []byte) uint32 {
	tmp := make([]byte, len(file))
	copy(tmp, file)
	for i := 40; i < 44; i++ {
		tmp[i] = 0
	}
	return crc32.ChecksumIEEE(tmp)
}

func compressPayload(kind CompressionType, payload []byte) ([]byte, error) {
	switch kind {
	case CompressNone:
		return payload, nil
	case CompressLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(payload, nil), nil
	default:
		return nil, fmt.Errorf("binary: unknown compression type %d", kind)
	}
}

func decompressPayload(kind CompressionType, compressed []byte) ([]byte, error) {
	switch kind {
	case CompressNone:
		return compressed, nil
	case CompressLZ4:
		r := lz4.NewReader(bytes.NewReader(compressed))
		return io.ReadAll(r)
	case CompressGzip:
		r, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(compressed, nil)
	default:
		return nil, fmt.Errorf("binary: unknown compression type %d", kind)
	}
}

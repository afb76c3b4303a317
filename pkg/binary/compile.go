package binary

import (
	"fmt"

	"github.com/cyber-boost/helix/pkg/ir"
)

// CompileOptions configures Compile's output.
type CompileOptions struct {
	Compression CompressionType
	Checksum    bool
	OptLevel    OptLevel
}

// DefaultCompileOptions matches what the CLI uses absent an explicit flag:
// zstd compression (the pack's best size/speed tradeoff per
// klauspost/compress's own benchmarks) with a checksum.
func DefaultCompileOptions() CompileOptions {
	return CompileOptions{Compression: CompressZstd, Checksum: true}
}

// Compile serializes prog into the byte-exact artifact format: a 44-byte
// header followed by a (optionally compressed) payload of StringPool,
// SymbolTable, and Sections. Section offsets recorded in the header are
// relative to the start of the decompressed payload, not the file: once
// compression scrambles on-disk byte positions, only post-decompression
// offsets stay meaningful.
func Compile(prog *ir.Program, opts CompileOptions) ([]byte, error) {
	stringPoolBytes := encodeStringPool(prog.Strings)
	sectionsBytes, sectionOffsets := encodeSections(prog)
	symbolTableBytes := encodeSymbolTable(buildSymbolTable(prog, sectionOffsets))

	payload := make([]byte, 0, len(stringPoolBytes)+len(symbolTableBytes)+len(sectionsBytes))
	stringPoolOff := uint64(0)
	payload = append(payload, stringPoolBytes...)
	symbolTableOff := uint64(len(payload))
	payload = append(payload, symbolTableBytes...)
	sectionsOff := uint64(len(payload))
	payload = append(payload, sectionsBytes...)

	compressed, err := compressPayload(opts.Compression, payload)
	if err != nil {
		return nil, fmt.Errorf("binary: compress payload: %w", err)
	}

	h := Header{
		Version: FormatVersion,
		Flags: Flags{
			Compression:     opts.Compression,
			ChecksumPresent: opts.Checksum,
			OptLevel:        opts.OptLevel,
		},
		StringPoolOff:  stringPoolOff,
		SymbolTableOff: symbolTableOff,
		SectionsOff:    sectionsOff,
	}
	h.TotalLength = uint64(HeaderSize + len(compressed))

	file := make([]byte, 0, h.TotalLength)
	file = append(file, h.Encode()...)
	file = append(file, compressed...)

	if opts.Checksum {
		crc := checksumFile(file)
		fileWithCRC := make([]byte, len(file))
		copy(fileWithCRC, file)
		putCRC(fileWithCRC, crc)
		return fileWithCRC, nil
	}
	return file, nil
}

func putCRC(file []byte, crc uint32) {
	file[40] = byte(crc)
	file[41] = byte(crc >> 8)
	file[42] = byte(crc >> 16)
	file[43] = byte(crc >> 24)
}

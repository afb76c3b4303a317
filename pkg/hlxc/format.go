package hlxc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v15/arrow/ipc"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/klauspost/compress/zstd"

	"github.com/cyber-boost/helix/pkg/ir"
)

// Magic identifies a .hlxc data file.
var Magic = [4]byte{'H', 'L', 'X', 'C'}

// FormatVersion is the current .hlxc format version.
const FormatVersion uint16 = 1

// Header is the fixed preamble of a .hlxc file: magic, version, a row
// count callers can show without decompressing the batches, and the
// length-prefixed uncompressed Arrow schema bytes (an IPC stream
// containing the schema message and no record batches) that follow it.
type Header struct {
	Version         uint16
	PreviewRowCount uint32
}

// Write serializes prog's declarations and properties (via ToRows) as one
// .hlxc stream: the fixed header, the uncompressed schema-only IPC
// stream, then a ZSTD-compressed IPC stream carrying the record batch.
func Write(w io.Writer, prog *ir.Program) error {
	rows := ToRows(prog)

	schemaBuf, err := writeSchemaOnlyStream()
	if err != nil {
		return fmt.Errorf("hlxc: write schema stream: %w", err)
	}

	batchesBuf, err := writeBatchesStream(rows)
	if err != nil {
		return fmt.Errorf("hlxc: write batches stream: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("hlxc: new zstd writer: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(batchesBuf, nil)

	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, FormatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(rows))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(schemaBuf))); err != nil {
		return err
	}
	if _, err := w.Write(schemaBuf); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(compressed))); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

// Read parses a .hlxc stream written by Write, returning the header and
// every row recovered from the decompressed record batches.
func Read(r io.Reader) (Header, []Row, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, nil, fmt.Errorf("hlxc: read magic: %w", err)
	}
	if magic != Magic {
		return Header{}, nil, fmt.Errorf("hlxc: bad magic %q", magic)
	}

	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return Header{}, nil, err
	}
	if h.Version != FormatVersion {
		return Header{}, nil, fmt.Errorf("hlxc: unsupported format version %d", h.Version)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.PreviewRowCount); err != nil {
		return Header{}, nil, err
	}

	var schemaLen uint32
	if err := binary.Read(r, binary.LittleEndian, &schemaLen); err != nil {
		return Header{}, nil, err
	}
	if _, err := io.CopyN(io.Discard, r, int64(schemaLen)); err != nil {
		return Header{}, nil, fmt.Errorf("hlxc: read schema bytes: %w", err)
	}

	var batchesLen uint32
	if err := binary.Read(r, binary.LittleEndian, &batchesLen); err != nil {
		return Header{}, nil, err
	}
	compressed := make([]byte, batchesLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return Header{}, nil, fmt.Errorf("hlxc: read compressed batches: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Header{}, nil, err
	}
	defer dec.Close()
	batchesBuf, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return Header{}, nil, fmt.Errorf("hlxc: decompress batches: %w", err)
	}

	rows, err := readBatchesStream(batchesBuf)
	if err != nil {
		return Header{}, nil, err
	}
	return h, rows, nil
}

func writeSchemaOnlyStream() ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(Schema))
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBatchesStream(rows []Row) ([]byte, error) {
	mem := memory.NewGoAllocator()
	rec := ToRecord(mem, rows)
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(Schema), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readBatchesStream(buf []byte) ([]Row, error) {
	mem := memory.NewGoAllocator()
	reader, err := ipc.NewReader(bytes.NewReader(buf), ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("hlxc: new ipc reader: %w", err)
	}
	defer reader.Release()

	var rows []Row
	for reader.Next() {
		rows = append(rows, RowsFromRecord(reader.Record())...)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("hlxc: read record batch: %w", err)
	}
	return rows, nil
}

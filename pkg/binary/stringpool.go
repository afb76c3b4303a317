package binary

import (
	"encoding/binary"
	"fmt"

	"github.com/cyber-boost/helix/pkg/ir"
)

// encodeStringPool writes a u32 count followed by that many
// length-prefixed (u32 length + UTF-8 bytes) entries, in id order so a
// string's position in the encoded list is its id.
func encodeStringPool(pool *ir.StringPool) []byte {
	strs := pool.Strings()
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(strs)))
	for _, s := range strs {
		entry := make([]byte, 4+len(s))
		binary.LittleEndian.PutUint32(entry[0:4], uint32(len(s)))
		copy(entry[4:], s)
		buf = append(buf, entry...)
	}
	return buf
}

// decodeStringPool reads the layout encodeStringPool writes, returning the
// strings in id order and the number of bytes consumed from buf.
func decodeStringPool(buf []byte) ([]string, int, error) {
	if len(buf) < 4 {
		return nil, 0, fmt.Errorf("binary: truncated string pool count")
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	off := 4
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(buf) {
			return nil, 0, fmt.Errorf("binary: truncated string pool entry %d length", i)
		}
		n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		if off+n > len(buf) {
			return nil, 0, fmt.Errorf("binary: truncated string pool entry %d data", i)
		}
		out = append(out, string(buf[off:off+n]))
		off += n
	}
	return out, off, nil
}

package binary

// Artifact is a compiled program held in memory: its encoded bytes plus
// the decoded header, so a caller that just compiled something can
// inspect compression/checksum/opt-level flags without re-parsing the
// bytes it already has.
type Artifact struct {
	Bytes  []byte
	Header Header
}

// NewArtifact decodes b's header and wraps it as an Artifact. Used by
// callers (pkg/helix) that get raw bytes back from Compile and want the
// facade-level Artifact type.
func NewArtifact(b []byte) (*Artifact, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	return &Artifact{Bytes: b, Header: h}, nil
}

// LoadedConfig is a compiled artifact opened for reading: the facade name
// for Loader, which already does exactly this (mmap'd or buffered, with
// lazy section decoding).
type LoadedConfig = Loader

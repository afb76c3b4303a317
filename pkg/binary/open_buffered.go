package binary

import "os"

// openBuffered reads path into an owned buffer and loads it, for hosts or
// filesystems where mmap isn't available.
func openBuffered(path string) (*Loader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

//go:build unix

package metadata

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// readFile maps path read-only and hands the mapping to fn. Empty files are
// read normally since they cannot be mapped.
func readFile(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	size := st.Size()
	if size == 0 {
		return fn(nil)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap %s: %w", path, err)
	}
	defer unix.Munmap(data)
	return fn(data)
}

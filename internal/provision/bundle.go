package provision

import (
	"fmt"
	"os"
	"path/filepath"
)

// KernelBlob is the file every engine asset bundle must contain.
const KernelBlob = "kernel_blob.bin"

// ValidateBundle checks that dir is an asset bundle directory containing
// KernelBlob.
func ValidateBundle(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("asset bundle: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset bundle %s is not a directory", dir)
	}
	blob := filepath.Join(dir, KernelBlob)
	info, err = os.Stat(blob)
	if err != nil {
		return fmt.Errorf("asset bundle %s: %w", dir, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("asset bundle %s: %s is not a regular file", dir, KernelBlob)
	}
	return nil
}

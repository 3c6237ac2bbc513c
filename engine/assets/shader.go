package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"
)

// LoadSPIRV reads a compiled shader binary. The byte length must be a
// multiple of four or the blob cannot be a valid SPIR-V word stream.
func LoadSPIRV(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("shader %s is empty", path)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("shader %s has size %d, not a multiple of 4", path, len(data))
	}

	words := make([]uint32, len(data)/4)
	copy(words, unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(words)))
	return words, nil
}

// ShaderPath joins the configured shader directory with a binary name.
func ShaderPath(dir, name string) string {
	return filepath.Join(dir, name)
}

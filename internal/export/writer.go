package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// WriteFile writes an export to dir using its deterministic filename,
// gzipping when compress is set (filename gains a .gz suffix). Returns the
// full path written.
func WriteFile(dir string, traceID string, format Format, data []byte, compress bool) (string, error) {
	name := Filename(traceID, format)
	if compress {
		name += ".gz"
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if !compress {
		if _, err := f.Write(data); err != nil {
			return "", fmt.Errorf("failed to write export: %w", err)
		}
		return path, nil
	}

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return "", fmt.Errorf("failed to write compressed export: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish compressed export: %w", err)
	}
	return path, nil
}

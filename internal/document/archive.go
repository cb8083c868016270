package document

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
)

// ArchiveEntry is one rendered document inside a batch archive.
type ArchiveEntry struct {
	Name    string
	Content []byte
}

// BuildArchive bundles rendered documents into a zip. The manifest, usually
// the batch's success/error tally, is written alongside as summary.json.
func BuildArchive(entries []ArchiveEntry, manifest interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, entry := range entries {
		fw, err := w.Create(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry %q: %w", entry.Name, err)
		}
		if _, err := fw.Write(entry.Content); err != nil {
			return nil, fmt.Errorf("failed to write archive entry %q: %w", entry.Name, err)
		}
	}

	if manifest != nil {
		fw, err := w.Create("summary.json")
		if err != nil {
			return nil, fmt.Errorf("failed to create archive summary: %w", err)
		}
		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode archive summary: %w", err)
		}
		if _, err := fw.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write archive summary: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

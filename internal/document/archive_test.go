package document

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArchive(t *testing.T) {
	entries := []ArchiveEntry{
		{Name: "invoice_202511-0001_0007.xlsx", Content: []byte("first")},
		{Name: "invoice_202511-0002_0013.xlsx", Content: []byte("second")},
	}
	manifest := map[string]int{"success_count": 2, "error_count": 0}

	data, err := BuildArchive(entries, manifest)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	contents := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contents[f.Name] = b
	}

	assert.Equal(t, []byte("first"), contents["invoice_202511-0001_0007.xlsx"])
	assert.Equal(t, []byte("second"), contents["invoice_202511-0002_0013.xlsx"])

	var tally map[string]int
	require.NoError(t, json.Unmarshal(contents["summary.json"], &tally))
	assert.Equal(t, 2, tally["success_count"])
}

func TestBuildArchive_NoManifest(t *testing.T) {
	data, err := BuildArchive([]ArchiveEntry{{Name: "a.xlsx", Content: []byte("x")}}, nil)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 1)
}

func TestBuildArchive_Empty(t *testing.T) {
	data, err := BuildArchive(nil, nil)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}

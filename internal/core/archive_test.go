package core

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = b
	}
	return out
}

func TestPackageArchive(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []ArchiveEntry{
		{Name: "b.xlsx", Data: []byte("second")},
		{Name: "a.xlsx", Data: []byte("first")},
	}

	data, err := PackageArchive(entries, modified)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "b.xlsx", zr.File[0].Name, "entries keep input order")
	assert.Equal(t, "a.xlsx", zr.File[1].Name)
	assert.True(t, zr.File[0].Modified.Equal(modified), "modified = %v", zr.File[0].Modified)

	got := readArchive(t, data)
	assert.Equal(t, []byte("second"), got["b.xlsx"])
	assert.Equal(t, []byte("first"), got["a.xlsx"])
}

func TestPackageArchive_Deterministic(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []ArchiveEntry{{Name: "a.xlsx", Data: bytes.Repeat([]byte("abc"), 100)}}

	first, err := PackageArchive(entries, modified)
	require.NoError(t, err)
	second, err := PackageArchive(entries, modified)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPackageArchive_Duplicate(t *testing.T) {
	_, err := PackageArchive([]ArchiveEntry{
		{Name: "a.xlsx", Data: []byte("1")},
		{Name: "a.xlsx", Data: []byte("2")},
	}, time.Now())
	assert.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestPackageArchive_Empty(t *testing.T) {
	data, err := PackageArchive(nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, readArchive(t, data))
}

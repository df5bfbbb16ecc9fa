package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestChecksum_KnownDigest(t *testing.T) {
	path := writeFile(t, "hello.txt", []byte("hello world"))

	sum, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", sum)
}

func TestChecksum_Deterministic(t *testing.T) {
	// spans several blocks plus a partial one
	content := bytes.Repeat([]byte("preservation"), BlockSize/4)
	path := writeFile(t, "big.bin", content)

	first, err := Checksum(path)
	require.NoError(t, err)
	second, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	fromReader, err := ChecksumReader(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, first, fromReader)
}

func TestChecksum_DifferentContentDiffers(t *testing.T) {
	a, err := ChecksumReader(strings.NewReader("source document"))
	require.NoError(t, err)
	b, err := ChecksumReader(strings.NewReader("%PDF-1.7 derivative"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestChecksum_MissingFile(t *testing.T) {
	_, err := Checksum(filepath.Join(t.TempDir(), "absent.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", "pdf"},
		{"REPORT.PDF", "pdf"},
		{"letter.docx", "docx"},
		{"photo.JPEG", "jpg"},
		{"scan.tif", "tiff"},
		{"page.htm", "html"},
		{"drawing.dwg", "dwg"},
		{"archive.tar.gz", FormatOther},
		{"README", FormatOther},
		{"weird.xyz", FormatOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatOf(tt.name))
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "docx", Extension("/tmp/Ata Final.DOCX"))
	assert.Equal(t, "", Extension("Makefile"))
}

func TestSanitizeFileName_Identity(t *testing.T) {
	for _, name := range []string{"Relatório 2023.docx", "a b c.pdf", "x"} {
		assert.Equal(t, name, SanitizeFileName(name))
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Relatório Anual 2023", "relatorio-anual-2023"},
		{"  Ação / Município: São Paulo  ", "acao-municipio-sao-paulo"},
		{"already-a-slug", "already-a-slug"},
		{"T-0001_batch", "t-0001-batch"},
		{"!!!", "untitled"},
		{"", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a.pdf", ObjectKey("", "a.pdf"))
	assert.Equal(t, "Root/Sub/a.pdf", ObjectKey("Root/Sub", "a.pdf"))
	assert.Equal(t, "Root/a.pdf", ObjectKey("/Root/", "a.pdf"))
}

package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Hello world\nLine 2"), ".txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nLine 2", got)
}

func TestExtractBytes_plainUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("caf\xc3\xa9"), ".md")
	require.NoError(t, err)
	assert.Equal(t, "café", got)
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello\x80world"), ".txt")
	require.NoError(t, err)
	assert.Equal(t, "hello�world", got)
}

func TestExtractBytes_plainBOMAndCRLF(t *testing.T) {
	got, err := NewExtractor().ExtractBytes([]byte("\xef\xbb\xbf# Title\r\n\r\nBody\r\n"), ".md")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody\n", got)
}

func TestJoinPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{"none", nil, ""},
		{"single", []string{"only page  \n"}, "only page"},
		{"separated", []string{"ends with word", "starts with word"}, "ends with word\nstarts with word"},
		{"blank pages dropped", []string{"one", "  \n\t", "", "two"}, "one\ntwo"},
		{"leading indentation kept", []string{"  indented"}, "  indented"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinPages(tt.pages))
		})
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	e := NewExtractor()
	_, err := e.ExtractBytes([]byte("x"), ".docx")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExtractBytes_invalidPDF(t *testing.T) {
	e := NewExtractor()
	_, err := e.ExtractBytes([]byte("not a pdf"), ".pdf")
	assert.Error(t, err)
}

func TestExtract_plainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("File content"), 0600))

	got, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "File content", got)
}

func TestExtract_missingFile(t *testing.T) {
	_, err := NewExtractor().Extract(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestExtractor_Supports(t *testing.T) {
	e := NewExtractor("pdf", ".TXT")
	assert.True(t, e.Supports("/a/b.pdf"))
	assert.True(t, e.Supports("notes.txt"))
	assert.False(t, e.Supports("notes.md"))

	_, err := e.Extract("notes.md")
	assert.ErrorIs(t, err, ErrUnsupported)
}

package clamb

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReader_ReadBitMSBFirst(t *testing.T) {
	br, err := NewBitReader(nil, strings.NewReader("\xA5")) // 1010_0101
	require.NoError(t, err)
	defer br.Close()

	want := []int{1, 0, 1, 0, 0, 1, 0, 1}
	for i, w := range want {
		bit, err := br.ReadBit()
		require.NoError(t, err, "bit %d", i)
		assert.Equal(t, w, bit, "bit %d", i)
	}
}

func TestBitReader_ReadBitUnexpectedEOF(t *testing.T) {
	br, err := NewBitReader(nil, strings.NewReader(""))
	require.NoError(t, err)
	defer br.Close()

	_, err = br.ReadBit()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestBitReader_ReadByteDiscardsPartialByte(t *testing.T) {
	br, err := NewBitReader(nil, strings.NewReader("\xFF\x42"))
	require.NoError(t, err)
	defer br.Close()

	// Consume 3 bits of the first byte, leaving a partial byte that
	// ReadByte must discard rather than resume from (§4.3/§6).
	for i := 0; i < 3; i++ {
		_, err := br.ReadBit()
		require.NoError(t, err)
	}
	b, err := br.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), b)
}

func TestBitReader_ReadByteEOF(t *testing.T) {
	br, err := NewBitReader(nil, strings.NewReader(""))
	require.NoError(t, err)
	defer br.Close()

	_, err = br.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBitReader_MultipleSourcesTransparent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefix.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x01}, 0o644))

	br, err := NewBitReader([]string{path}, strings.NewReader("\x02"))
	require.NoError(t, err)
	defer br.Close()

	b1, err := br.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b1)

	b2, err := br.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), b2)

	_, err = br.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBitReader_OpenFileError(t *testing.T) {
	_, err := NewBitReader([]string{"/nonexistent/path/for/clamb/test"}, strings.NewReader(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpenFile)
}

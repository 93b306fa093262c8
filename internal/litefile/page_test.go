package litefile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		aPage, err := NewPage(3, PageSize512, make([]byte, 512))
		require.NoError(t, err)
		assert.Equal(t, 512, aPage.Len())
		assert.Equal(t, 0, aPage.BtreeHeaderOffset())
	})

	t.Run("page zero", func(t *testing.T) {
		_, err := NewPage(0, PageSize512, make([]byte, 512))
		assert.ErrorIs(t, err, ErrInvalidPageNumber)
	})

	t.Run("unsupported size", func(t *testing.T) {
		_, err := NewPage(1, PageSize(1000), make([]byte, 1000))
		require.Error(t, err)
	})

	t.Run("buffer length differs from page size", func(t *testing.T) {
		_, err := NewPage(1, PageSize1024, make([]byte, 512))
		require.Error(t, err)
	})
}

func TestPage_Checksum(t *testing.T) {
	t.Parallel()

	aPage, err := NewPage(2, PageSize512, bytes.Repeat([]byte{0xab}, 512))
	require.NoError(t, err)

	checksum := aPage.Checksum()
	assert.Len(t, checksum, 64)
	assert.Equal(t, checksum, aPage.Checksum())

	aClone := aPage.Clone()
	assert.Equal(t, checksum, aClone.Checksum())

	aClone.Data()[10] = 0x00
	assert.NotEqual(t, checksum, aClone.Checksum())
	assert.Equal(t, byte(0xab), aPage.Data()[10], "clone must not share the buffer")
}

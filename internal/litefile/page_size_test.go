package litefile

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePageSize(t *testing.T) {
	t.Parallel()

	t.Run("valid sizes round trip", func(t *testing.T) {
		for _, size := range ValidPageSizes() {
			encoded := size.Encode()

			decoded, err := DecodePageSize(encoded[:])
			require.NoError(t, err)
			assert.Equal(t, size, decoded)
			assert.True(t, decoded.Valid())
		}
	})

	t.Run("one means 65536", func(t *testing.T) {
		decoded, err := DecodePageSize([]byte{0x00, 0x01})
		require.NoError(t, err)
		assert.Equal(t, PageSize65536, decoded)
		assert.Equal(t, [2]byte{0x00, 0x01}, PageSize65536.Encode())
	})

	t.Run("big endian", func(t *testing.T) {
		decoded, err := DecodePageSize([]byte{0x10, 0x00})
		require.NoError(t, err)
		assert.Equal(t, PageSize4096, decoded)
	})

	t.Run("every two byte pattern either round trips or is rejected", func(t *testing.T) {
		accepted := 0
		for v := 0; v <= 0xffff; v++ {
			var buf [2]byte
			binary.BigEndian.PutUint16(buf[:], uint16(v))

			decoded, err := DecodePageSize(buf[:])
			if err != nil {
				var fieldErr *FieldParsingError
				require.True(t, errors.As(err, &fieldErr), "value %d", v)
				assert.Equal(t, FieldPageSize, fieldErr.Field)
				continue
			}
			accepted += 1
			assert.Equal(t, buf, decoded.Encode(), "value %d", v)
		}
		assert.Equal(t, len(ValidPageSizes()), accepted)
	})

	t.Run("rejected values", func(t *testing.T) {
		for _, v := range []uint16{0, 2, 256, 511, 513, 1000, 3000, 65535} {
			var buf [2]byte
			binary.BigEndian.PutUint16(buf[:], v)

			_, err := DecodePageSize(buf[:])
			var fieldErr *FieldParsingError
			require.True(t, errors.As(err, &fieldErr), "value %d", v)
		}
	})

	t.Run("payload too small", func(t *testing.T) {
		_, err := DecodePageSize([]byte{0x10})

		var sizeErr *PayloadTooSmallError
		require.True(t, errors.As(err, &sizeErr))
		assert.Equal(t, FieldPageSize, sizeErr.Field)
		assert.Equal(t, 2, sizeErr.Want)
		assert.Equal(t, 1, sizeErr.Actual)
	})
}

func TestPageSize_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, DefaultPageSize.Valid())
	assert.False(t, PageSize(0).Valid())
	assert.False(t, PageSize(4000).Valid())
	assert.False(t, PageSize(131072).Valid())
	assert.Equal(t, 4096, DefaultPageSize.Int())
}

package litefile

import (
	"bytes"
	"io"
)

// Stream is the byte source a pager reads pages from. Files and in-memory
// buffers both satisfy it.
type Stream interface {
	io.ReadSeeker
}

// NewMemoryStream returns a stream over data. A nil slice is an empty database.
func NewMemoryStream(data []byte) Stream {
	return bytes.NewReader(data)
}

func streamLength(s Stream) (int64, error) {
	size, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, &IOError{Op: "seek", Err: err}
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return 0, &IOError{Op: "rewind", Err: err}
	}
	return size, nil
}

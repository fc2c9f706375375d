package quic

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/zeusync/spacewar/internal/core/transport"
	"github.com/zeusync/spacewar/pkg/encoding"
)

const frameHeader = 4

// WriteFrame writes a length-prefixed frame in a single write.
func WriteFrame(w io.Writer, frame []byte) error {
	buf := encoding.AcquireWriter()
	defer encoding.ReleaseWriter(buf)

	buf.WriteUint32(uint32(len(frame)))
	buf.WriteBytes(frame)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame no longer than limit.
func ReadFrame(r io.Reader, limit uint32) ([]byte, error) {
	var hdr [frameHeader]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	size := encoding.NewReader(hdr[:]).ReadUint32()
	if size > limit {
		return nil, fmt.Errorf("%w: %d > %d", transport.ErrFrameTooLarge, size, limit)
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, errors.Wrap(err, "failed to read frame body")
	}
	return frame, nil
}

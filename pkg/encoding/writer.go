package encoding

import (
	"encoding/binary"
	"math"

	"github.com/zeusync/spacewar/pkg/generic"
)

// Writer appends big-endian primitives to a growing buffer.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

var writerPool = generic.NewPool(func() *Writer { return NewWriter(256) }).
	WithReset(func(w *Writer) { w.Reset() })

// AcquireWriter takes a reset writer from the shared pool.
func AcquireWriter() *Writer {
	return writerPool.Get()
}

// ReleaseWriter returns w to the pool. Bytes obtained from w must not be used afterwards.
func ReleaseWriter(w *Writer) {
	if cap(w.buf) > 64*1024 {
		return
	}
	writerPool.Put(w)
}

func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Clone returns a copy of the written bytes that outlives the writer.
func (w *Writer) Clone() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

func (w *Writer) WriteInt16(v int16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteFloat32(v float32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// WriteString writes a uint16 length prefix followed by the raw bytes.
// Strings longer than 65535 bytes are truncated.
func (w *Writer) WriteString(s string) {
	if len(s) > math.MaxUint16 {
		s = s[:math.MaxUint16]
	}
	w.WriteUint16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

package encoding

// Marshaler is implemented by values that write themselves in the fixed wire layout.
type Marshaler interface {
	MarshalWire(w *Writer)
}

// Unmarshaler reads a value back from the fixed wire layout.
type Unmarshaler interface {
	UnmarshalWire(r *Reader) error
}

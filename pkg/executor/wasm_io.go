package executor

import "bytes"

// jsonCaptureWriter buffers everything a WASI module writes to stdout so
// WasmDriver can decode it as one JSON value after the module exits.
type jsonCaptureWriter struct {
	data []byte
}

func (w *jsonCaptureWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func newBytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

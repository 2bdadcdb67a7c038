package middleware

import "net/http"

// trackingWriter records what a handler sent: the status, the body size and,
// for event streams, how many times it flushed. Flush and Unwrap reach the
// underlying writer so streams keep flushing and http.ResponseController
// can still set per-write deadlines.
type trackingWriter struct {
	http.ResponseWriter
	status  int
	bytes   int64
	flushes int
	started bool
}

func newTrackingWriter(w http.ResponseWriter) *trackingWriter {
	return &trackingWriter{ResponseWriter: w, status: http.StatusOK}
}

func (tw *trackingWriter) WriteHeader(code int) {
	if !tw.started {
		tw.status = code
		tw.started = true
	}
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	tw.started = true
	n, err := tw.ResponseWriter.Write(b)
	tw.bytes += int64(n)
	return n, err
}

// Flush implements http.Flusher.
func (tw *trackingWriter) Flush() {
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		tw.flushes++
		f.Flush()
	}
}

func (tw *trackingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

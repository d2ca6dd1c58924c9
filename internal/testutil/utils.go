package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"
)

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// TestLogger returns a logger that writes through t.Log, so output only shows
// for failing or verbose tests.
func TestLogger(t *testing.T) *log.Logger {
	return log.New(testWriter{t: t}, "[test] ", log.LstdFlags)
}

// JsonBody encodes v as a request body. Strings are passed through verbatim so
// tests can send malformed payloads.
func JsonBody(t *testing.T, v any) io.Reader {
	t.Helper()

	if s, ok := v.(string); ok {
		return strings.NewReader(s)
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("encode request body: %v", err)
	}
	return buf
}

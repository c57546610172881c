// SPDX-License-Identifier: BSD-3-Clause

package socket

import (
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	in := frame{Type: "EXECUTE_JOB", Timestamp: 12.5, Payload: []byte(`{"job_id":"job-0"}`)}
	if err := writeFrame(&buf, in); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	out, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}

	if out.Type != in.Type || out.Timestamp != in.Timestamp {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF}) // huge length prefix, no body

	if _, err := readFrame(&buf); err == nil {
		t.Fatalf("expected readFrame to reject an oversized length prefix")
	}
}

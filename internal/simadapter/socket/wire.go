// SPDX-License-Identifier: BSD-3-Clause

// Package socket implements simadapter.Adapter as a thin typed bridge
// framing requests and events as length-prefixed JSON messages over a
// net.Conn. This is this module's own concrete choice of wire format: the
// distilled spec deliberately leaves the codec unspecified, describing
// only the message contract (see internal/simadapter's Event/Request
// vocabulary), so this package is the Go-idiomatic realization of that
// contract rather than any specific external simulator's bespoke protocol.
package socket

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameSize bounds a single frame to guard against a corrupt or
// malicious length prefix from stalling the reader on an unbounded read.
const maxFrameSize = 64 * 1024 * 1024

// frame is the on-wire envelope: a 4-byte big-endian length prefix
// followed by this JSON object.
type frame struct {
	Type      string          `json:"type"`
	Timestamp float64         `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// writeFrame encodes f and writes it to w as a length-prefixed message.
func writeFrame(w io.Writer, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	if len(data) > maxFrameSize {
		return fmt.Errorf("%w: frame of %d bytes exceeds max %d", ErrEncodeFailed, len(data), maxFrameSize)
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(data)))

	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return nil
}

// readFrame reads one length-prefixed message from r.
func readFrame(r io.Reader) (frame, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return frame{}, fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}

	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameSize {
		return frame{}, fmt.Errorf("%w: frame of %d bytes exceeds max %d", ErrDecodeFailed, n, maxFrameSize)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return frame{}, fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return frame{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return f, nil
}

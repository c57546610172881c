// SPDX-License-Identifier: BSD-3-Clause

package socket

import "errors"

var (
	// ErrEncodeFailed indicates a frame could not be marshaled to JSON.
	ErrEncodeFailed = errors.New("socket adapter: failed to encode frame")
	// ErrDecodeFailed indicates a received frame was not valid JSON or
	// exceeded the maximum frame size.
	ErrDecodeFailed = errors.New("socket adapter: failed to decode frame")
	// ErrConnectionClosed indicates the underlying connection failed mid-read or mid-write.
	ErrConnectionClosed = errors.New("socket adapter: connection closed")
	// ErrUnknownEventKind indicates a frame named a type this adapter does not recognize.
	ErrUnknownEventKind = errors.New("socket adapter: unknown event kind")
)

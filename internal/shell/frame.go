package shell

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame sizes, fixed by the wire contract. Every request is the same size
// regardless of how much of the payload the command actually uses.
const (
	TagSize     = 4
	PayloadSize = 0xFFF8
	RequestSize = TagSize + PayloadSize

	ResponseSize = 4
)

// Result conventions. Zero is success and negative values carry an error
// code; the BLDR handler deviates and reports a non-negative block count.
const (
	ResultSuccess int32 = 0
	ResultError   int32 = -1
)

// Request is one decoded request frame. Payload aliases the session read
// buffer and is only valid until the next frame is read.
type Request struct {
	Tag     [TagSize]byte
	Payload []byte
}

// DecodeRequest splits a raw frame into tag and payload.
func DecodeRequest(frame []byte) (Request, error) {
	if len(frame) != RequestSize {
		return Request{}, fmt.Errorf("request frame is %d bytes, expected %d", len(frame), RequestSize)
	}
	var req Request
	copy(req.Tag[:], frame[:TagSize])
	req.Payload = frame[TagSize:]
	return req, nil
}

// PayloadString extracts the NUL-terminated string commands like EXEC and
// PULL carry in the payload. A payload with no terminator is rejected
// rather than read past the buffer.
func (r Request) PayloadString() (string, error) {
	i := bytes.IndexByte(r.Payload, 0)
	if i < 0 {
		return "", errors.New("payload string is not NUL-terminated")
	}
	return string(r.Payload[:i]), nil
}

// EncodeResponse serializes a response frame, little-endian.
func EncodeResponse(result int32) []byte {
	out := make([]byte, ResponseSize)
	binary.LittleEndian.PutUint32(out, uint32(result))
	return out
}

// DecodeResponse parses a response frame. The device side never reads
// responses; this is for host-side tooling and tests.
func DecodeResponse(frame []byte) (int32, error) {
	if len(frame) != ResponseSize {
		return 0, fmt.Errorf("response frame is %d bytes, expected %d", len(frame), ResponseSize)
	}
	return int32(binary.LittleEndian.Uint32(frame)), nil
}

// EncodeRequest builds a raw request frame from a tag and payload prefix.
// Host-side helper; the payload is NUL-padded to the fixed frame size.
func EncodeRequest(tag [TagSize]byte, payload []byte) ([]byte, error) {
	if len(payload) > PayloadSize {
		return nil, fmt.Errorf("payload of %d bytes exceeds frame capacity %d", len(payload), PayloadSize)
	}
	frame := make([]byte, RequestSize)
	copy(frame[:TagSize], tag[:])
	copy(frame[TagSize:], payload)
	return frame, nil
}

package shell

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRequestRejectsWrongSize(t *testing.T) {
	_, err := DecodeRequest(make([]byte, RequestSize-1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected 65532")
}

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	frame, err := EncodeRequest(TagPull, []byte("/dev/nflasha1"))
	require.NoError(t, err)
	require.Len(t, frame, RequestSize)

	req, err := DecodeRequest(frame)
	require.NoError(t, err)
	require.Equal(t, TagPull, req.Tag)

	path, err := req.PayloadString()
	require.NoError(t, err)
	require.Equal(t, "/dev/nflasha1", path)
}

func TestEncodeRequestRejectsOversizedPayload(t *testing.T) {
	_, err := EncodeRequest(TagExec, make([]byte, PayloadSize+1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds frame capacity")
}

func TestPayloadStringRequiresTerminator(t *testing.T) {
	req := Request{Payload: bytes.Repeat([]byte{'a'}, PayloadSize)}
	_, err := req.PayloadString()
	require.Error(t, err)
	require.Contains(t, err.Error(), "not NUL-terminated")
}

func TestPayloadStringStopsAtFirstNUL(t *testing.T) {
	payload := make([]byte, PayloadSize)
	copy(payload, "sh -c reboot\x00trailing garbage")

	s, err := Request{Payload: payload}.PayloadString()
	require.NoError(t, err)
	require.Equal(t, "sh -c reboot", s)
}

func TestResponseEncodingIsLittleEndianSigned(t *testing.T) {
	tests := []struct {
		name   string
		result int32
		want   []byte
	}{
		{name: "success", result: 0, want: []byte{0, 0, 0, 0}},
		{name: "generic error", result: -1, want: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{name: "errno passthrough", result: -2, want: []byte{0xFE, 0xFF, 0xFF, 0xFF}},
		{name: "block count", result: 3, want: []byte{3, 0, 0, 0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			frame := EncodeResponse(tc.result)
			require.Equal(t, tc.want, frame)

			back, err := DecodeResponse(frame)
			require.NoError(t, err)
			require.Equal(t, tc.result, back)
		})
	}
}

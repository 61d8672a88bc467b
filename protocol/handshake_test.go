package protocol_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Erigara/mv/protocol"
)

func TestHandshakeRequest(t *testing.T) {
	req := protocol.HandshakeRequest{Versions: []uint32{0, 3, 9}}
	buf, err := req.Marshal()
	require.NoError(t, err)

	var got protocol.HandshakeRequest
	require.NoError(t, got.Unmarshal(buf))
	require.Equal(t, req.Versions, got.Versions)

	require.True(t, got.Contains(3))
	require.False(t, got.Contains(1))
}

func TestHandshakeRequestEmpty(t *testing.T) {
	var req protocol.HandshakeRequest
	_, err := req.Marshal()
	require.Error(t, err)
}

func TestHandshakeRequestTruncated(t *testing.T) {
	req := protocol.HandshakeRequest{Versions: []uint32{4, 5}}
	buf, err := req.Marshal()
	require.NoError(t, err)

	var got protocol.HandshakeRequest
	require.Equal(t, io.ErrUnexpectedEOF, got.Unmarshal(nil))
	require.Equal(t, io.ErrUnexpectedEOF, got.Unmarshal(buf[:len(buf)-2]))
}

func TestHandshakeResponse(t *testing.T) {
	resp := protocol.HandshakeResponse{Version: 42}
	buf, err := resp.Marshal()
	require.NoError(t, err)

	var got protocol.HandshakeResponse
	require.NoError(t, got.Unmarshal(buf))
	require.Equal(t, resp, got)

	require.Equal(t, io.ErrUnexpectedEOF, got.Unmarshal(buf[:3]))
	require.Error(t, got.Unmarshal(append(buf, 0)))
}

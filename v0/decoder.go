// Package v0 declares the response decoders understood by version 0 clients.
package v0

import "github.com/Erigara/mv/protocol"

// Version is the protocol version this package decodes.
const Version uint32 = 0

var Decoder protocol.Decoder

func init() {
	Decoder.Register(protocol.GET, (*protocol.GetResponse)(nil))
	Decoder.Register(protocol.RANGE, (*protocol.RangeResponse)(nil))
	Decoder.Register(protocol.LEN, (*protocol.LenResponse)(nil))
	Decoder.Register(protocol.VERSION, (*protocol.VersionResponse)(nil))
	Decoder.Register(protocol.STAT, (*protocol.StatResponse)(nil))
	Decoder.Register(protocol.DUMP, (*protocol.DumpResponse)(nil))

	Decoder.Register(protocol.OK, (*protocol.OkResponse)(nil))
	Decoder.Register(protocol.ERROR, (*protocol.ErrorResponse)(nil))
	Decoder.Register(protocol.HANDSHAKE, (*protocol.HandshakeResponse)(nil))
}

package tip

import "github.com/Erigara/mv/protocol"

var Decoder protocol.Decoder

func init() {
	Decoder.Register(protocol.GET, (*protocol.GetRequest)(nil))
	Decoder.Register(protocol.SET, (*protocol.SetRequest)(nil))
	Decoder.Register(protocol.DELETE, (*protocol.DeleteRequest)(nil))
	Decoder.Register(protocol.RANGE, (*protocol.RangeRequest)(nil))
	Decoder.Register(protocol.RESTORE, (*protocol.RestoreRequest)(nil))
}

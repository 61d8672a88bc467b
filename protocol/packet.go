package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	PacketHeadSize = 16

	// MaxPayloadSize bounds a single packet's payload; a dump of a
	// whole storage is the largest payload either side sends.
	MaxPayloadSize = 64 << 20
)

var ErrPayloadTooBig = errors.New("mv/protocol: payload exceeds maximum size")

type Packet struct {
	Seq     uint32
	Cmd     uint32
	Payload []byte
}

func ReadPacket(r io.Reader, pkt *Packet) error {
	var head [PacketHeadSize]byte
	_, err := io.ReadFull(r, head[:])
	if err != nil {
		return err
	}
	var payload []byte
	if size := binary.LittleEndian.Uint64(head[8:]); size != 0 {
		if size > MaxPayloadSize {
			return ErrPayloadTooBig
		}
		payload = make([]byte, size)
		_, err := io.ReadFull(r, payload)
		if err != nil {
			return err
		}
	}
	pkt.Seq = binary.LittleEndian.Uint32(head[:4])
	pkt.Cmd = binary.LittleEndian.Uint32(head[4:])
	pkt.Payload = payload
	return nil
}

func WritePacket(w io.Writer, pkt *Packet) error {
	n := len(pkt.Payload)
	if n > MaxPayloadSize {
		return ErrPayloadTooBig
	}
	var head [PacketHeadSize]byte
	binary.LittleEndian.PutUint32(head[:4], pkt.Seq)
	binary.LittleEndian.PutUint32(head[4:], pkt.Cmd)
	binary.LittleEndian.PutUint64(head[8:], uint64(n))
	_, err := w.Write(head[:])
	if err != nil {
		return err
	}
	if n != 0 {
		_, err = w.Write(pkt.Payload)
	}
	return err
}

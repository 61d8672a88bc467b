package protocol

import (
	"errors"
	"reflect"

	"github.com/golang/protobuf/proto"
)

var ErrNoUnmarshaler = errors.New("mv/protocol.Decoder: no unmarshaler registered")

type decodeEntry struct {
	Unmarshaler reflect.Type
	Protobuf    reflect.Type
}

type Unmarshaler interface {
	Unmarshal([]byte) error
}

type Marshaler interface {
	Marshal() ([]byte, error)
}

type Protobuf interface {
	proto.Message
}

// Decoder maps command codes to message prototypes. Register a nil
// pointer of the message type; Unmarshal constructs a fresh value per
// packet.
type Decoder struct {
	msgs map[uint32]decodeEntry
}

func (d *Decoder) Register(cmd uint32, msg interface{}) {
	if msg == nil {
		panic("mv/protocol.Decoder: nil prototype message value")
	}
	if _, ok := d.msgs[cmd]; ok {
		panic("mv/protocol.Decoder: duplicated command registered")
	}
	if d.msgs == nil {
		d.msgs = make(map[uint32]decodeEntry)
	}
	typ := reflect.TypeOf(msg)
	if typ.Kind() != reflect.Ptr {
		panic("mv/protocol.Decoder: no pointer type registered")
	}
	switch msg.(type) {
	case Unmarshaler:
		d.msgs[cmd] = decodeEntry{Unmarshaler: typ.Elem()}
	case Protobuf:
		d.msgs[cmd] = decodeEntry{Protobuf: typ.Elem()}
	default:
		panic("mv/protocol.Decoder: unsupported type")
	}
}

func (d *Decoder) Unmarshal(cmd uint32, buf []byte) (interface{}, error) {
	entry, ok := d.msgs[cmd]
	if !ok {
		return nil, ErrNoUnmarshaler
	}
	switch {
	case entry.Unmarshaler != nil:
		msg := reflect.New(entry.Unmarshaler).Interface().(Unmarshaler)
		err := msg.Unmarshal(buf)
		if err != nil {
			return nil, err
		}
		return msg, nil
	default:
		msg := reflect.New(entry.Protobuf).Interface().(proto.Message)
		err := proto.Unmarshal(buf, msg)
		if err != nil {
			return nil, err
		}
		return msg, nil
	}
}

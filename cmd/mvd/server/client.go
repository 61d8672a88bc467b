package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"time"

	"github.com/Sirupsen/logrus"
	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/kezhuw/neterrs"

	"github.com/Erigara/mv"
	"github.com/Erigara/mv/cmd/mvd/server/tip"
	"github.com/Erigara/mv/protocol"
)

var ErrIncompatibleVersion = errors.New("incompatible protocol version")

// Client serves one connection. All packet handling happens on the
// serve goroutine, so the block/transaction fields need no locking;
// the storage itself is safe for the concurrent one-shot reads and
// writes issued on other connections.
type Client struct {
	id     uint64
	store  *mv.Storage[string, []byte]
	logger *logrus.Logger

	conn connection
	addr net.Addr

	closed       chan struct{}
	decoder      *protocol.Decoder
	disconnected chan uint64

	writes chan protocol.Packet

	block *mv.Block[string, []byte]
	tx    *mv.Transaction[string, []byte]
}

func NewClient(id uint64, conn connection, store *mv.Storage[string, []byte], logger *logrus.Logger, disconnected chan uint64) *Client {
	return &Client{
		id:           id,
		store:        store,
		conn:         conn,
		addr:         conn.RemoteAddr(),
		logger:       logger,
		closed:       make(chan struct{}),
		disconnected: disconnected,
	}
}

func (c *Client) handleRead(conn connection, reads chan protocol.Packet) {
	defer close(reads)
	r := bufio.NewReader(conn)
	var err error
	var pkt protocol.Packet
	for {
		err = protocol.ReadPacket(r, &pkt)
		if err != nil {
			break
		}
		reads <- pkt
		pkt.Payload = nil
	}
	switch {
	case err == io.EOF || neterrs.IsClosed(err):
		c.logger.Infof("client[%d, %s], peer closed.", c.id, c.addr)
	default:
		c.logger.Warnf("client[%d, %s], peer aborted: %s.", c.id, c.addr, err)
	}
}

func (c *Client) handleWrite(conn connection, writes chan protocol.Packet) {
	defer conn.CloseWrite()
	w := bufio.NewWriter(conn)
	for pkt := range writes {
		protocol.WritePacket(w, &pkt)
		err := w.Flush()
		if err != nil {
			c.logger.Warnf("client[%d, %s] write error: %s", c.id, c.addr, err)
			break
		}
	}
	for range writes {
	}
	// the server closes the disconnected channel after the last Shutdown
	// returns, so the report must precede closing closed
	c.disconnected <- c.id
	close(c.closed)
}

func (c *Client) Start(cap int) {
	c.writes = make(chan protocol.Packet, cap)
	go c.serve(cap)
}

func (c *Client) serve(cap int) {
	c.logger.Infof("client[%d, %s] serving", c.id, c.addr)
	reads := make(chan protocol.Packet, cap)
	go c.handleRead(c.conn, reads)
	go c.handleWrite(c.conn, c.writes)
	defer close(c.writes)
	for pkt := range reads {
		err := c.handlePacket(pkt.Seq, pkt.Cmd, pkt.Payload)
		if err != nil {
			c.conn.CloseRead()
			go func() {
				for range reads {
				}
			}()
			c.logger.Errorf("client[%d, %s] fail to handle command %d, aborting: %s", c.id, c.addr, pkt.Cmd, err)
			break
		}
	}
	if c.block != nil {
		c.logger.Warnf("client[%d, %s] disconnected with open write scope, rolling back", c.id, c.addr)
		c.block.Rollback()
		c.block, c.tx = nil, nil
	}
	c.logger.Infof("client[%d, %s] exited.", c.id, c.addr)
}

func (c *Client) replyOk(seq uint32) {
	c.writes <- protocol.Packet{Seq: seq, Cmd: protocol.OK}
}

func (c *Client) replyEcode(seq uint32, code int) {
	var msg protocol.ErrorResponse
	msg.Code = uint32(code)
	payload, _ := proto.Marshal(&msg)
	c.replyPacket(seq, protocol.ERROR, payload)
}

func (c *Client) replyError(seq uint32, err error) {
	var msg protocol.ErrorResponse
	switch err {
	case mv.ErrWriterBusy:
		msg.Code = protocol.EcodeWriterBusy
	case mv.ErrScopeClosed:
		msg.Code = protocol.EcodeScopeClosed
	case mv.ErrScopeActive:
		msg.Code = protocol.EcodeScopeActive
	case mv.ErrNoHistory:
		msg.Code = protocol.EcodeNoHistory
	case mv.ErrKeyNotFound:
		msg.Code = protocol.EcodeKeyNotFound
	default:
		msg.Code = protocol.EcodeInternalError
		msg.Info = err.Error()
	}
	payload, _ := proto.Marshal(&msg)
	c.replyPacket(seq, protocol.ERROR, payload)
}

func (c *Client) replyPacket(seq, cmd uint32, payload []byte) {
	c.writes <- protocol.Packet{Seq: seq, Cmd: cmd, Payload: payload}
}

func (c *Client) replyMessage(seq, cmd uint32, msg proto.Message) {
	payload, err := proto.Marshal(msg)
	if err != nil {
		c.logger.Errorf("client[%d, %s] fail to marshal response %d: %s", c.id, c.addr, cmd, err)
		c.replyEcode(seq, protocol.EcodeInternalError)
		return
	}
	c.writes <- protocol.Packet{Seq: seq, Cmd: cmd, Payload: payload}
}

var handlers = make(map[uint32]reflect.Value)

func regMessageHandler(cmd uint32, callback interface{}) {
	handlers[cmd] = reflect.ValueOf(callback)
}

func init() {
	regMessageHandler(protocol.GET, (*Client).handleCommandGet)
	regMessageHandler(protocol.SET, (*Client).handleCommandSet)
	regMessageHandler(protocol.DELETE, (*Client).handleCommandDelete)
	regMessageHandler(protocol.RANGE, (*Client).handleCommandRange)
	regMessageHandler(protocol.RESTORE, (*Client).handleCommandRestore)
}

func (c *Client) call(f reflect.Value, seq uint32, msg interface{}) error {
	results := f.Call([]reflect.Value{reflect.ValueOf(c), reflect.ValueOf(seq), reflect.ValueOf(msg)})
	if len(results) == 0 {
		return nil
	}
	switch result := results[0].Interface().(type) {
	case nil:
		return nil
	case error:
		return result.(error)
	default:
		return fmt.Errorf("unexpected return type from message handling: %s", reflect.TypeOf(result))
	}
}

var (
	errDecoderNone     = errors.New("no protocol decoder selected")
	errDecoderSelected = errors.New("protocol decoder selected")
)

func (c *Client) handlePacket(seq, cmd uint32, payload []byte) error {
	switch {
	case cmd == protocol.HANDSHAKE:
		return c.handleHandshake(seq, payload)
	case c.decoder == nil:
		return errDecoderNone
	}
	switch cmd {
	case protocol.LEN:
		c.handleCommandLen(seq)
		return nil
	case protocol.VERSION:
		c.handleCommandVersion(seq)
		return nil
	case protocol.STAT:
		c.handleCommandStat(seq)
		return nil
	case protocol.BLOCK:
		c.handleCommandBlock(seq)
		return nil
	case protocol.COMMIT:
		c.handleCommandCommit(seq)
		return nil
	case protocol.ROLLBACK:
		c.handleCommandRollback(seq)
		return nil
	case protocol.BEGIN:
		c.handleCommandBegin(seq)
		return nil
	case protocol.APPLY:
		c.handleCommandApply(seq)
		return nil
	case protocol.DISCARD:
		c.handleCommandDiscard(seq)
		return nil
	case protocol.REVERT:
		c.handleCommandRevert(seq)
		return nil
	case protocol.DUMP:
		c.handleCommandDump(seq)
		return nil
	}
	f, ok := handlers[cmd]
	if !ok {
		c.replyEcode(seq, protocol.EcodeUnknownRequest)
		return nil
	}
	msg, err := c.decoder.Unmarshal(cmd, payload)
	if err != nil {
		c.replyEcode(seq, protocol.EcodeInvalidMessage)
		return nil
	}
	return c.call(f, seq, msg)
}

func (c *Client) handleCommandGet(seq uint32, msg *protocol.GetRequest) error {
	var value []byte
	var err error
	key := string(msg.Key)
	switch {
	case c.tx != nil:
		value, err = c.tx.Get(key)
	case c.block != nil:
		value, err = c.block.Get(key)
	default:
		value, err = c.store.Get(key)
	}
	if err != nil {
		c.replyError(seq, err)
		return nil
	}
	c.replyMessage(seq, protocol.GET, &protocol.GetResponse{Value: value})
	return nil
}

func (c *Client) handleCommandSet(seq uint32, msg *protocol.SetRequest) error {
	var err error
	key := string(msg.Key)
	switch {
	case c.tx != nil:
		err = c.tx.Set(key, msg.Value)
	case c.block != nil:
		err = c.block.Set(key, msg.Value)
	default:
		err = c.store.Update(func(b *mv.Block[string, []byte]) error {
			return b.Set(key, msg.Value)
		})
	}
	if err != nil {
		c.replyError(seq, err)
		return nil
	}
	c.replyOk(seq)
	return nil
}

func (c *Client) handleCommandDelete(seq uint32, msg *protocol.DeleteRequest) error {
	var err error
	key := string(msg.Key)
	switch {
	case c.tx != nil:
		err = c.tx.Delete(key)
	case c.block != nil:
		err = c.block.Delete(key)
	default:
		err = c.store.Update(func(b *mv.Block[string, []byte]) error {
			return b.Delete(key)
		})
	}
	if err != nil {
		c.replyError(seq, err)
		return nil
	}
	c.replyOk(seq)
	return nil
}

func (c *Client) handleCommandRange(seq uint32, msg *protocol.RangeRequest) error {
	var resp protocol.RangeResponse
	n := 0
	walk := func(key string, value []byte) bool {
		if msg.Limit != 0 && n == int(msg.Limit) {
			resp.More = true
			return false
		}
		resp.Keys = append(resp.Keys, []byte(key))
		resp.Values = append(resp.Values, value)
		n++
		return true
	}
	from, to := string(msg.From), string(msg.To)
	var err error
	switch {
	case c.tx != nil:
		if to == "" {
			err = c.tx.AscendGreaterOrEqual(from, walk)
		} else {
			err = c.tx.AscendRange(from, to, walk)
		}
	case c.block != nil:
		if to == "" {
			err = c.block.AscendGreaterOrEqual(from, walk)
		} else {
			err = c.block.AscendRange(from, to, walk)
		}
	default:
		v := c.store.View()
		if to == "" {
			v.AscendGreaterOrEqual(from, walk)
		} else {
			v.AscendRange(from, to, walk)
		}
		v.Close()
	}
	if err != nil {
		c.replyError(seq, err)
		return nil
	}
	c.replyMessage(seq, protocol.RANGE, &resp)
	return nil
}

func (c *Client) handleCommandLen(seq uint32) {
	var n int
	var err error
	switch {
	case c.tx != nil:
		n, err = c.tx.Len()
	case c.block != nil:
		n, err = c.block.Len()
	default:
		n = c.store.Len()
	}
	if err != nil {
		c.replyError(seq, err)
		return
	}
	c.replyMessage(seq, protocol.LEN, &protocol.LenResponse{Len: uint64(n)})
}

func (c *Client) handleCommandVersion(seq uint32) {
	c.replyMessage(seq, protocol.VERSION, &protocol.VersionResponse{Version: c.store.Version()})
}

func (c *Client) handleCommandStat(seq uint32) {
	stats := c.store.Stats()
	c.replyMessage(seq, protocol.STAT, &protocol.StatResponse{
		Version: stats.Version,
		Len:     uint64(stats.Len),
		Live:    uint32(stats.Live),
		History: uint32(stats.History),
	})
}

func (c *Client) handleCommandBlock(seq uint32) {
	if c.block != nil {
		c.replyEcode(seq, protocol.EcodeWriterBusy)
		return
	}
	b, err := c.store.Block()
	if err != nil {
		c.replyError(seq, err)
		return
	}
	c.block = b
	c.replyOk(seq)
}

func (c *Client) handleCommandCommit(seq uint32) {
	if c.block == nil {
		c.replyEcode(seq, protocol.EcodeNoScope)
		return
	}
	if err := c.block.Commit(); err != nil {
		c.replyError(seq, err)
		return
	}
	c.block = nil
	c.replyOk(seq)
}

func (c *Client) handleCommandRollback(seq uint32) {
	if c.block == nil {
		c.replyEcode(seq, protocol.EcodeNoScope)
		return
	}
	if err := c.block.Rollback(); err != nil {
		c.replyError(seq, err)
		return
	}
	c.block, c.tx = nil, nil
	c.replyOk(seq)
}

func (c *Client) handleCommandBegin(seq uint32) {
	if c.block == nil {
		c.replyEcode(seq, protocol.EcodeNoScope)
		return
	}
	tx, err := c.block.Transaction()
	if err != nil {
		c.replyError(seq, err)
		return
	}
	c.tx = tx
	c.replyOk(seq)
}

func (c *Client) handleCommandApply(seq uint32) {
	if c.tx == nil {
		c.replyEcode(seq, protocol.EcodeNoScope)
		return
	}
	if err := c.tx.Commit(); err != nil {
		c.replyError(seq, err)
		return
	}
	c.tx = nil
	c.replyOk(seq)
}

func (c *Client) handleCommandDiscard(seq uint32) {
	if c.tx == nil {
		c.replyEcode(seq, protocol.EcodeNoScope)
		return
	}
	if err := c.tx.Rollback(); err != nil {
		c.replyError(seq, err)
		return
	}
	c.tx = nil
	c.replyOk(seq)
}

func (c *Client) handleCommandRevert(seq uint32) {
	if err := c.store.RevertLast(); err != nil {
		c.replyError(seq, err)
		return
	}
	c.replyOk(seq)
}

func (c *Client) handleCommandDump(seq uint32) {
	data, err := json.Marshal(c.store)
	if err != nil {
		c.replyError(seq, err)
		return
	}
	c.replyMessage(seq, protocol.DUMP, &protocol.DumpResponse{Data: snappy.Encode(nil, data)})
}

func (c *Client) handleCommandRestore(seq uint32, msg *protocol.RestoreRequest) error {
	// Restoring contends for the writer gate; with wait-writer storage
	// it would wait forever on this connection's own open block.
	if c.block != nil {
		c.replyEcode(seq, protocol.EcodeWriterBusy)
		return nil
	}
	data, err := snappy.Decode(nil, msg.Data)
	if err != nil {
		c.replyEcode(seq, protocol.EcodeInvalidMessage)
		return nil
	}
	if err := json.Unmarshal(data, c.store); err != nil {
		c.replyError(seq, err)
		return nil
	}
	c.replyOk(seq)
	return nil
}

func (c *Client) handleHandshake(seq uint32, payload []byte) error {
	if c.decoder != nil {
		return errDecoderSelected
	}
	var handshake protocol.HandshakeRequest
	err := handshake.Unmarshal(payload)
	if err != nil {
		return err
	}
	c.replyPacket(seq, protocol.HANDSHAKE, tip.HandshakeReplyPayload)
	if handshake.Contains(tip.Version) {
		c.decoder = &tip.Decoder
		return nil
	}
	return ErrIncompatibleVersion
}

func (c *Client) Shutdown(timeout time.Duration) {
	c.logger.Infof("client[%d, %s] shutting down", c.id, c.addr)
	c.conn.CloseRead()
	if timeout > 0 {
		select {
		case <-c.closed:
		case <-time.After(timeout):
			c.logger.Warnf("client[%d, %s] shutdown timed out, closing connection", c.id, c.addr)
			c.conn.Close()
			<-c.closed
		}
	} else {
		<-c.closed
	}
	c.conn.Close()
	c.logger.Infof("client[%d, %s] shut down", c.id, c.addr)
}

// Package client speaks the mvd wire protocol. A Client owns one
// connection and issues one request at a time; concurrent callers are
// serialized. Scope commands (Block, Begin, ...) act on the connection's
// server side scopes, so interleaving goroutines over a shared Client
// rarely makes sense anyway.
package client

import (
	"bufio"
	"errors"
	"io"
	"net"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/kezhuw/neterrs"

	"github.com/Erigara/mv/protocol"
	"github.com/Erigara/mv/v0"
)

var (
	ErrClientClosed        = errors.New("mv: client closed")
	ErrServerClosed        = errors.New("mv: server closed")
	ErrIncompatibleVersion = errors.New("mv: incompatible version")
	ErrOutOfSync           = errors.New("mv: response out of sync")

	errMalformedRange = errors.New("mv: malformed range response")
)

type ResponseTypeError struct {
	Type reflect.Type
}

func (e *ResponseTypeError) Error() string {
	if e.Type == nil {
		return "mv: unexpected empty response"
	}
	return "mv: unexpected response type: " + e.Type.String()
}

type DialOptions struct {
	Timeout time.Duration
}

var defaultDialOptions = &DialOptions{}

// Entry is one key/value pair returned by Range.
type Entry struct {
	Key   []byte
	Value []byte
}

// Stat mirrors the server's storage statistics.
type Stat struct {
	Version uint64
	Len     uint64
	Live    int
	History int
}

type Client struct {
	mu   sync.Mutex
	seq  uint32
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	err  error

	closed int32
}

// Dial connects to a mvd server and negotiates a protocol version.
func Dial(addr string, opts *DialOptions) (*Client, error) {
	if opts == nil {
		opts = defaultDialOptions
	}
	conn, err := dial(addr, opts.Timeout)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
	result, err := c.roundTrip(protocol.HANDSHAKE, &protocol.HandshakeRequest{Versions: []uint32{v0.Version}})
	if err != nil {
		c.Close()
		return nil, err
	}
	switch result := result.(type) {
	case *protocol.HandshakeResponse:
		if result.Version != v0.Version {
			c.Close()
			return nil, ErrIncompatibleVersion
		}
	default:
		c.Close()
		return nil, &ResponseTypeError{reflect.TypeOf(result)}
	}
	runtime.SetFinalizer(c, (*Client).finalize)
	return c, nil
}

func marshalRequest(msg interface{}) ([]byte, error) {
	switch msg := msg.(type) {
	case []byte:
		return msg, nil
	case protocol.Marshaler:
		return msg.Marshal()
	case protocol.Protobuf:
		return proto.Marshal(msg)
	}
	return nil, nil
}

// roundTrip writes one request and blocks for its response. Replies
// arrive in request order; a sequence mismatch poisons the connection.
func (c *Client) roundTrip(cmd uint32, msg interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case atomic.LoadInt32(&c.closed) != 0:
		return nil, ErrClientClosed
	case c.err != nil:
		return nil, c.err
	}
	data, err := marshalRequest(msg)
	if err != nil {
		return nil, err
	}
	c.seq++
	pkt := protocol.Packet{Seq: c.seq, Cmd: cmd, Payload: data}
	if err := protocol.WritePacket(c.w, &pkt); err != nil {
		return nil, c.fail(err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, c.fail(err)
	}
	if err := protocol.ReadPacket(c.r, &pkt); err != nil {
		return nil, c.fail(err)
	}
	if pkt.Seq != c.seq {
		return nil, c.fail(ErrOutOfSync)
	}
	result, err := v0.Decoder.Unmarshal(pkt.Cmd, pkt.Payload)
	if err != nil {
		return nil, c.fail(err)
	}
	switch result := result.(type) {
	case *protocol.OkResponse:
		return nil, nil
	case *protocol.ErrorResponse:
		return nil, &protocol.Error{Code: int(result.Code), Info: result.Info}
	default:
		return result, nil
	}
}

// fail records the first transport error; every later call returns it.
func (c *Client) fail(err error) error {
	switch {
	case atomic.LoadInt32(&c.closed) != 0:
		err = ErrClientClosed
	case err == io.EOF || err == io.ErrUnexpectedEOF || neterrs.IsClosed(err):
		err = ErrServerClosed
	}
	c.err = err
	return err
}

// ok consumes responses of commands that answer with a bare OK.
func (c *Client) ok(cmd uint32, msg interface{}) error {
	result, err := c.roundTrip(cmd, msg)
	if err != nil {
		return err
	}
	if result != nil {
		return &ResponseTypeError{reflect.TypeOf(result)}
	}
	return nil
}

// Get returns the value stored under key. Missing keys answer with a
// key-not-found protocol error.
func (c *Client) Get(key []byte) ([]byte, error) {
	result, err := c.roundTrip(protocol.GET, &protocol.GetRequest{Key: key})
	if err != nil {
		return nil, err
	}
	switch result := result.(type) {
	case *protocol.GetResponse:
		return result.Value, nil
	default:
		return nil, &ResponseTypeError{reflect.TypeOf(result)}
	}
}

// Set stores value under key in the innermost open write scope, or as a
// standalone commit when no scope is open.
func (c *Client) Set(key, value []byte) error {
	return c.ok(protocol.SET, &protocol.SetRequest{Key: key, Value: value})
}

// Delete removes key. Deleting an absent key succeeds.
func (c *Client) Delete(key []byte) error {
	return c.ok(protocol.DELETE, &protocol.DeleteRequest{Key: key})
}

// Len returns the number of keys visible to the innermost open scope.
func (c *Client) Len() (uint64, error) {
	result, err := c.roundTrip(protocol.LEN, nil)
	if err != nil {
		return 0, err
	}
	switch result := result.(type) {
	case *protocol.LenResponse:
		return result.Len, nil
	default:
		return 0, &ResponseTypeError{reflect.TypeOf(result)}
	}
}

// Version returns the storage's committed version.
func (c *Client) Version() (uint64, error) {
	result, err := c.roundTrip(protocol.VERSION, nil)
	if err != nil {
		return 0, err
	}
	switch result := result.(type) {
	case *protocol.VersionResponse:
		return result.Version, nil
	default:
		return 0, &ResponseTypeError{reflect.TypeOf(result)}
	}
}

// Stat returns storage statistics.
func (c *Client) Stat() (*Stat, error) {
	result, err := c.roundTrip(protocol.STAT, nil)
	if err != nil {
		return nil, err
	}
	switch result := result.(type) {
	case *protocol.StatResponse:
		return &Stat{
			Version: result.Version,
			Len:     result.Len,
			Live:    int(result.Live),
			History: int(result.History),
		}, nil
	default:
		return nil, &ResponseTypeError{reflect.TypeOf(result)}
	}
}

// Range returns up to limit entries with from <= key < to, read from one
// consistent version. A nil to means no upper bound; limit 0 means no
// limit. more reports whether entries were cut off by limit.
func (c *Client) Range(from, to []byte, limit uint32) (entries []Entry, more bool, err error) {
	result, err := c.roundTrip(protocol.RANGE, &protocol.RangeRequest{From: from, To: to, Limit: limit})
	if err != nil {
		return nil, false, err
	}
	switch result := result.(type) {
	case *protocol.RangeResponse:
		if len(result.Keys) != len(result.Values) {
			return nil, false, errMalformedRange
		}
		entries = make([]Entry, len(result.Keys))
		for i, key := range result.Keys {
			entries[i] = Entry{Key: key, Value: result.Values[i]}
		}
		return entries, result.More, nil
	default:
		return nil, false, &ResponseTypeError{reflect.TypeOf(result)}
	}
}

// Block opens a write block on this connection.
func (c *Client) Block() error {
	return c.ok(protocol.BLOCK, nil)
}

// Commit publishes the open block's draft as the new current version.
func (c *Client) Commit() error {
	return c.ok(protocol.COMMIT, nil)
}

// Rollback discards the open block, any open transaction included.
func (c *Client) Rollback() error {
	return c.ok(protocol.ROLLBACK, nil)
}

// Begin opens a transaction inside this connection's open block.
func (c *Client) Begin() error {
	return c.ok(protocol.BEGIN, nil)
}

// Apply keeps the open transaction's writes in the enclosing block.
func (c *Client) Apply() error {
	return c.ok(protocol.APPLY, nil)
}

// Discard undoes the open transaction's writes.
func (c *Client) Discard() error {
	return c.ok(protocol.DISCARD, nil)
}

// Revert discards the current version and reinstates the previous one.
func (c *Client) Revert() error {
	return c.ok(protocol.REVERT, nil)
}

// Dump returns a JSON snapshot of the whole storage.
func (c *Client) Dump() ([]byte, error) {
	result, err := c.roundTrip(protocol.DUMP, nil)
	if err != nil {
		return nil, err
	}
	switch result := result.(type) {
	case *protocol.DumpResponse:
		return snappy.Decode(nil, result.Data)
	default:
		return nil, &ResponseTypeError{reflect.TypeOf(result)}
	}
}

// Restore replaces the whole storage with a snapshot taken by Dump.
func (c *Client) Restore(data []byte) error {
	return c.ok(protocol.RESTORE, &protocol.RestoreRequest{Data: snappy.Encode(nil, data)})
}

func (c *Client) finalize() {
	c.conn.Close()
}

// Close shuts the connection down. Requests blocked on the server fail
// with ErrClientClosed.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return ErrClientClosed
	}
	runtime.SetFinalizer(c, nil)
	return c.conn.Close()
}

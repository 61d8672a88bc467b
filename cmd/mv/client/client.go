package client

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"strconv"

	mvclient "github.com/Erigara/mv/client"
	"github.com/Erigara/mv/cmd/mv/cmds"
)

var (
	ErrInvalidArguments   = errors.New("invalid arguments")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// State is one connection plus its mirror of the server side session:
// whether this connection holds an open block or transaction. The
// server is authoritative; the flags only shape the prompt and are
// updated on confirmed replies.
type State struct {
	client *mvclient.Client
	block  bool
	tx     bool
}

func Dial(addr string) (*State, error) {
	client, err := mvclient.Dial(addr, nil)
	if err != nil {
		return nil, err
	}
	return &State{client: client}, nil
}

func (s *State) Prompt() string {
	switch {
	case s.tx:
		return "mv(b/t)> "
	case s.block:
		return "mv(b)> "
	}
	return "mv> "
}

type handlerFunc func(*State, string) (string, error)

type handlerInfo struct {
	Cmd  *cmds.Command
	Func handlerFunc
}

var handlers = make(map[string]handlerInfo)

func regHandler(name string, f handlerFunc) {
	cmd := cmds.Find(name)
	if cmd == nil {
		panic(fmt.Errorf("no command: %s", name))
	}
	handlers[cmd.Name] = handlerInfo{cmd, f}
}

func init() {
	regHandler("get", (*State).handleGet)
	regHandler("set", (*State).handleSet)
	regHandler("delete", (*State).handleDelete)
	regHandler("range", (*State).handleRange)
	regHandler("len", (*State).handleLen)
	regHandler("version", (*State).handleVersion)
	regHandler("stat", (*State).handleStat)
	regHandler("block", (*State).handleBlock)
	regHandler("commit", (*State).handleCommit)
	regHandler("rollback", (*State).handleRollback)
	regHandler("begin", (*State).handleBegin)
	regHandler("apply", (*State).handleApply)
	regHandler("discard", (*State).handleDiscard)
	regHandler("revert", (*State).handleRevert)
	regHandler("dump", (*State).handleDump)
	regHandler("restore", (*State).handleRestore)
}

func (s *State) ExecuteCommand(cmd *cmds.Command, args string) (string, error) {
	h, ok := handlers[cmd.Name]
	if !ok {
		return "", ErrUnsupportedCommand
	}
	return h.Func(s, args)
}

func (s *State) handleGet(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidArguments
	}
	value, err := s.client.Get([]byte(key))
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (s *State) handleSet(str string) (string, error) {
	args := cmds.SplitArgs(str, 2)
	if len(args) != 2 {
		return "", ErrInvalidArguments
	}
	err := s.client.Set([]byte(args[0]), []byte(args[1]))
	if err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *State) handleDelete(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidArguments
	}
	err := s.client.Delete([]byte(key))
	if err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *State) handleRange(str string) (string, error) {
	args := cmds.SplitArgs(str, 0)
	if len(args) > 3 {
		return "", ErrInvalidArguments
	}
	var from, to []byte
	var limit uint64
	var err error
	if len(args) > 0 {
		from = []byte(args[0])
	}
	if len(args) > 1 {
		to = []byte(args[1])
	}
	if len(args) > 2 {
		limit, err = strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return "", ErrInvalidArguments
		}
	}
	entries, more, err := s.client.Range(from, to, uint32(limit))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s = %s\n", e.Key, e.Value)
	}
	switch {
	case more:
		fmt.Fprintf(&buf, "... and more")
	case len(entries) == 0:
		fmt.Fprintf(&buf, "empty")
	default:
		fmt.Fprintf(&buf, "%d entries", len(entries))
	}
	return buf.String(), nil
}

func (s *State) handleLen(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	n, err := s.client.Len()
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(n, 10), nil
}

func (s *State) handleVersion(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	version, err := s.client.Version()
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(version, 10), nil
}

func (s *State) handleStat(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	stat, err := s.client.Stat()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("version=%d len=%d live=%d history=%d", stat.Version, stat.Len, stat.Live, stat.History), nil
}

func (s *State) handleBlock(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	if err := s.client.Block(); err != nil {
		return "", err
	}
	s.block = true
	return "OK", nil
}

func (s *State) handleCommit(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	if err := s.client.Commit(); err != nil {
		return "", err
	}
	s.block = false
	return "OK", nil
}

func (s *State) handleRollback(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	if err := s.client.Rollback(); err != nil {
		return "", err
	}
	s.block, s.tx = false, false
	return "OK", nil
}

func (s *State) handleBegin(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	if err := s.client.Begin(); err != nil {
		return "", err
	}
	s.tx = true
	return "OK", nil
}

func (s *State) handleApply(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	if err := s.client.Apply(); err != nil {
		return "", err
	}
	s.tx = false
	return "OK", nil
}

func (s *State) handleDiscard(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	if err := s.client.Discard(); err != nil {
		return "", err
	}
	s.tx = false
	return "OK", nil
}

func (s *State) handleRevert(args string) (string, error) {
	if args != "" {
		return "", ErrInvalidArguments
	}
	if err := s.client.Revert(); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *State) handleDump(filename string) (string, error) {
	data, err := s.client.Dump()
	if err != nil {
		return "", err
	}
	if filename == "" {
		return string(data), nil
	}
	if err := ioutil.WriteFile(filename, data, 0644); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *State) handleRestore(filename string) (string, error) {
	if filename == "" {
		return "", ErrInvalidArguments
	}
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return "", err
	}
	if err := s.client.Restore(data); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *State) Close() {
	s.client.Close()
}

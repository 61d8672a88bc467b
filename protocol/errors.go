package protocol

import "fmt"

const (
	EcodeWriterBusy     = 0
	EcodeScopeClosed    = 1
	EcodeScopeActive    = 2
	EcodeNoHistory      = 3
	EcodeKeyNotFound    = 4
	EcodeNoScope        = 5
	EcodeInvalidMessage = 6
	EcodeUnknownRequest = 7
	EcodeInternalError  = 8
)

var errs = map[int]string{
	EcodeWriterBusy:     "writer busy",
	EcodeScopeClosed:    "scope closed",
	EcodeScopeActive:    "scope active",
	EcodeNoHistory:      "no history",
	EcodeKeyNotFound:    "key not found",
	EcodeNoScope:        "no open scope",
	EcodeInvalidMessage: "invalid message",
	EcodeUnknownRequest: "unknown request",
	EcodeInternalError:  "server internal error",
}

type Error struct {
	Code int
	Info string
}

func (e *Error) Error() string {
	info := e.Info
	if info != "" {
		info = ", info: " + info
	}
	if str, ok := errs[e.Code]; ok {
		return "mv: " + str + info
	}
	return fmt.Sprintf("mv: unknown error code: %d%s", e.Code, info)
}

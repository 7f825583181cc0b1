// Package protocol encodes and decodes the ASCII frames exchanged with the PLC.
//
// A frame is the whole payload of one connection: fields joined by '|', the
// first field being the command code. Requests flow PLC -> server (M1xx),
// responses server -> PLC (R1xx).
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxFrameSize bounds a single read from the PLC socket.
const MaxFrameSize = 4096

// Separator joins fields within a frame.
const Separator = "|"

// StatusOK is the status field value the PLC uses for ready / match.
const StatusOK = "200"

type Command string

const (
	CmdReady     Command = "M100"
	CmdGood      Command = "M101"
	CmdDefect    Command = "M102"
	CmdCompleted Command = "M103"
	CmdOutfeed   Command = "M104"
	CmdMatch     Command = "M105"
	CmdHeartbeat Command = "M106"

	RespQuantity Command = "R100"
	RespOutfeed  Command = "R104"
)

var (
	ErrEmptyFrame     = errors.New("empty frame")
	ErrUnknownCommand = errors.New("unknown command")
	ErrFieldCount     = errors.New("wrong field count")
	ErrBadQuantity    = errors.New("quantity is not a non-negative integer")
)

// Request is a decoded PLC frame. Only the fields relevant to Cmd are set.
type Request struct {
	Cmd    Command
	Status string // M100, M105
	Ref    string // M101..M103: kanban reference as sent by the PLC
	Qty    int    // M101..M103
}

// OK reports whether the status field carries the success code.
func (r Request) OK() bool { return r.Status == StatusOK }

func (r Request) String() string {
	switch r.Cmd {
	case CmdReady, CmdMatch:
		return join(string(r.Cmd), r.Status)
	case CmdGood, CmdDefect, CmdCompleted:
		return join(string(r.Cmd), r.Ref, strconv.Itoa(r.Qty))
	default:
		return string(r.Cmd)
	}
}

// Response is a server instruction sent back to the PLC.
type Response struct {
	Cmd   Command
	Model string
	Qty   int
}

func (r Response) String() string {
	return join(string(r.Cmd), r.Model, strconv.Itoa(r.Qty))
}

// Encode returns the wire bytes of the response.
func (r Response) Encode() []byte { return []byte(r.String()) }

// Parse decodes one inbound frame.
func Parse(frame []byte) (Request, error) {
	text := strings.Trim(string(frame), " \t\r\n\x00")
	if text == "" {
		return Request{}, ErrEmptyFrame
	}
	fields := strings.Split(text, Separator)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	cmd := Command(fields[0])

	want, ok := fieldCounts[cmd]
	if !ok {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	if len(fields) != want {
		return Request{}, fmt.Errorf("%w: %s wants %d, got %d", ErrFieldCount, cmd, want, len(fields))
	}

	req := Request{Cmd: cmd}
	switch cmd {
	case CmdReady, CmdMatch:
		req.Status = fields[1]
	case CmdGood, CmdDefect, CmdCompleted:
		qty, err := ParseQty(fields[2])
		if err != nil {
			return Request{}, err
		}
		req.Ref = fields[1]
		req.Qty = qty
	}
	return req, nil
}

// ParseQty parses a quantity field.
func ParseQty(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadQuantity, s)
	}
	return n, nil
}

var fieldCounts = map[Command]int{
	CmdReady:     2,
	CmdGood:      3,
	CmdDefect:    3,
	CmdCompleted: 3,
	CmdOutfeed:   1,
	CmdMatch:     2,
	CmdHeartbeat: 1,
}

func join(fields ...string) string { return strings.Join(fields, Separator) }

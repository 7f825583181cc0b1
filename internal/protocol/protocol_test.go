package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		frame string
		want  Request
	}{
		{"M100|200", Request{Cmd: CmdReady, Status: "200"}},
		{"M100|500", Request{Cmd: CmdReady, Status: "500"}},
		{"M101|4321|9", Request{Cmd: CmdGood, Ref: "4321", Qty: 9}},
		{"M102|4321|1", Request{Cmd: CmdDefect, Ref: "4321", Qty: 1}},
		{"M103|4321|10", Request{Cmd: CmdCompleted, Ref: "4321", Qty: 10}},
		{"M104", Request{Cmd: CmdOutfeed}},
		{"M105|200", Request{Cmd: CmdMatch, Status: "200"}},
		{"M106", Request{Cmd: CmdHeartbeat}},
		{"M101|4321|9\r\n", Request{Cmd: CmdGood, Ref: "4321", Qty: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			got, err := Parse([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Faults(t *testing.T) {
	tests := []struct {
		frame string
		err   error
	}{
		{"", ErrEmptyFrame},
		{"\x00\x00", ErrEmptyFrame},
		{"M999|1", ErrUnknownCommand},
		{"hello", ErrUnknownCommand},
		{"M100", ErrFieldCount},
		{"M101|4321", ErrFieldCount},
		{"M104|extra", ErrFieldCount},
		{"M101|4321|nine", ErrBadQuantity},
		{"M102|4321|-1", ErrBadQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			_, err := Parse([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestResponse_Encode(t *testing.T) {
	r := Response{Cmd: RespQuantity, Model: "4321", Qty: 10}
	assert.Equal(t, "R100|4321|10", string(r.Encode()))

	r = Response{Cmd: RespOutfeed, Model: "4321", Qty: 10}
	assert.Equal(t, "R104|4321|10", r.String())
}

func TestRequest_String(t *testing.T) {
	assert.Equal(t, "M100|200", Request{Cmd: CmdReady, Status: "200"}.String())
	assert.Equal(t, "M103|4321|10", Request{Cmd: CmdCompleted, Ref: "4321", Qty: 10}.String())
	assert.Equal(t, "M104", Request{Cmd: CmdOutfeed}.String())
}

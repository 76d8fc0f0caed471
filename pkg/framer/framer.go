// Package framer turns typed requests into wire frames and wire bytes
// back into decoded replies, implementing both of the protocol's two
// dialects (simple and extended-with-CRC).
package framer

import (
	"github.com/brainlink/v5serial/internal/crc"
	"github.com/brainlink/v5serial/pkg/codec"
	"github.com/brainlink/v5serial/pkg/proto"
)

// HostPreamble precedes every host-to-device frame.
var HostPreamble = [4]byte{0xC9, 0x36, 0xB8, 0x47}

// DevicePreamble precedes every device-to-host frame.
var DevicePreamble = [2]byte{0xAA, 0x55}

// extendedCommand is the command byte that marks an extended frame;
// its payload wraps an inner extended command id.
const extendedCommand = 0x56

// DefaultGarbageBound is how many leading non-preamble bytes Decode
// discards before giving up with ErrNoFrameFound.
const DefaultGarbageBound = 4096

// EncodeRequest serializes req into a complete host-to-device frame.
func EncodeRequest(req proto.Request) ([]byte, error) {
	payload, err := req.EncodePayload()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(HostPreamble)+2+len(payload)+2)
	buf = append(buf, HostPreamble[:]...)
	buf = append(buf, req.CommandID())

	extCmd, isExt := req.Extended()
	if !isExt {
		buf = append(buf, payload...)
		return buf, nil
	}

	varlen, err := codec.NewVarU16(uint16(len(payload)))
	if err != nil {
		return nil, err
	}
	buf = append(buf, extCmd)
	buf = varlen.Encode(buf)
	buf = append(buf, payload...)

	sum := crc.ComputeCRC16(buf)
	buf = append(buf, byte(sum>>8), byte(sum))
	return buf, nil
}

// Frame is a fully parsed device-to-host frame, decoded far enough to
// route to its reply type but before the reply's own payload fields
// are parsed out.
type Frame struct {
	Cmd      byte
	ExtCmd   byte
	Extended bool
	// Payload is the reply body ready for Reply.DecodePayload: for
	// extended frames the leading ack byte has already been consumed
	// and checked; for the simple dialect it is the bytes following the
	// device's length byte.
	Payload []byte
	Consumed int
}

// Decode looks for a device preamble at the start of buf (skipping up
// to bound leading bytes) and, once found, parses one complete frame.
// It returns ErrIncomplete if a preamble was found but buf doesn't yet
// hold the whole frame, or ErrNoFrameFound if bound is exceeded without
// a match. A non-success ack in an extended frame surfaces as
// *proto.NackError; the frame is still fully consumed.
func Decode(buf []byte, bound int) (Frame, error) {
	skip, found, needMore := scanPreamble(buf, bound)
	if !found {
		if needMore {
			return Frame{}, ErrIncomplete
		}
		return Frame{}, ErrNoFrameFound
	}
	buf = buf[skip:]
	if len(buf) < 3 {
		return Frame{}, ErrIncomplete
	}
	cmd := buf[2]
	if cmd != extendedCommand {
		return decodeSimple(buf, skip, cmd)
	}
	return decodeExtended(buf, skip)
}

// scanPreamble looks for DevicePreamble at an offset 0..=bound within
// buf. needMore distinguishes "ran out of buffer before the bound was
// reached" (caller should wait for more bytes) from "scanned the full
// bound with no match" (caller should give up).
func scanPreamble(buf []byte, bound int) (skip int, found bool, needMore bool) {
	for i := 0; i <= bound && i+1 < len(buf); i++ {
		if buf[i] == DevicePreamble[0] && buf[i+1] == DevicePreamble[1] {
			return i, true, false
		}
	}
	if len(buf) < bound+2 {
		return 0, false, true
	}
	return 0, false, false
}

func decodeSimple(buf []byte, skip int, cmd byte) (Frame, error) {
	// buf[0:2] preamble, buf[2] cmd, buf[3] length (counts cmd + payload).
	if len(buf) < 4 {
		return Frame{}, ErrIncomplete
	}
	length := int(buf[3])
	if length < 1 {
		return Frame{}, ErrFrameCRC
	}
	payloadLen := length - 1
	total := 4 + payloadLen
	if len(buf) < total {
		return Frame{}, ErrIncomplete
	}
	return Frame{
		Cmd:      cmd,
		Payload:  append([]byte(nil), buf[4:total]...),
		Consumed: skip + total,
	}, nil
}

func decodeExtended(buf []byte, skip int) (Frame, error) {
	// buf[0:2] preamble, buf[2] cmd (0x56), buf[3] ext cmd, then VarU16 len.
	if len(buf) < 4 {
		return Frame{}, ErrIncomplete
	}
	extCmd := buf[3]
	varlenStart := 4
	if len(buf) < varlenStart+1 {
		return Frame{}, ErrIncomplete
	}
	length, varlenSize, err := codec.DecodeVarU16(buf[varlenStart:])
	if err != nil {
		return Frame{}, ErrIncomplete
	}
	payloadStart := varlenStart + varlenSize
	payloadEnd := payloadStart + int(length)
	frameEnd := payloadEnd + 2 // trailing CRC16
	if len(buf) < frameEnd {
		return Frame{}, ErrIncomplete
	}

	want := crc.ComputeCRC16(buf[:payloadEnd])
	got := uint16(buf[payloadEnd])<<8 | uint16(buf[payloadEnd+1])
	if uint16(want) != got {
		return Frame{}, ErrFrameCRC
	}

	extPayload := buf[payloadStart:payloadEnd]
	consumed := skip + frameEnd
	if len(extPayload) < 1 {
		return Frame{}, codec.ErrUnexpectedEnd
	}
	if ackErr := proto.CheckAck(extPayload[0]); ackErr != nil {
		return Frame{
			Cmd:      extendedCommand,
			ExtCmd:   extCmd,
			Extended: true,
			Consumed: consumed,
		}, ackErr
	}
	return Frame{
		Cmd:      extendedCommand,
		ExtCmd:   extCmd,
		Extended: true,
		Payload:  append([]byte(nil), extPayload[1:]...),
		Consumed: consumed,
	}, nil
}

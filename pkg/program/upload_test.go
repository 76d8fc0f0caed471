package program

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brainlink/v5serial/pkg/proto"
	"github.com/brainlink/v5serial/pkg/transport"
)

type queuedPipe struct {
	replies [][]byte
	cur     []byte
	written [][]byte
}

func newQueuedPipe(replies ...[]byte) *queuedPipe { return &queuedPipe{replies: replies} }

func (p *queuedPipe) Read(b []byte) (int, error) {
	if len(p.cur) == 0 {
		if len(p.replies) == 0 {
			return 0, nil
		}
		p.cur = p.replies[0]
		p.replies = p.replies[1:]
	}
	n := copy(b, p.cur)
	p.cur = p.cur[n:]
	return n, nil
}

func (p *queuedPipe) Write(b []byte) (int, error) {
	p.written = append(p.written, append([]byte(nil), b...))
	return len(b), nil
}

func (p *queuedPipe) Close() error                       { return nil }
func (p *queuedPipe) SetReadTimeout(time.Duration) error { return nil }

func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func extendedReply(extCmd byte, payload []byte) []byte {
	body := append([]byte{0x76}, payload...)
	buf := []byte{0xAA, 0x55, 0x56, extCmd, byte(len(body))}
	buf = append(buf, body...)
	sum := crc16(buf)
	buf = append(buf, byte(sum>>8), byte(sum))
	return buf
}

// parseSent decodes one host->device extended frame into its ext
// command byte and the bytes following the VarU16 length.
func parseSent(t *testing.T, frame []byte) (byte, []byte) {
	t.Helper()
	require.Equal(t, byte(0x56), frame[4])
	extCmd := frame[5]
	idx := 6
	if frame[idx]&0x80 != 0 {
		idx += 2
	} else {
		idx++
	}
	return extCmd, frame[idx : len(frame)-2]
}

func TestUploadProgramBothSendsThreeSessionsInOrder(t *testing.T) {
	// A window_size of 4096 keeps every file to a single WriteFile chunk
	// so the exchange sequence is small and easy to assert on exactly.
	initReplyWide := []byte{0x00, 0x10, 0, 0, 0, 0, 0, 0, 0, 0} // window_size=4096
	replies := newQueuedPipe(
		extendedReply(0x11, initReplyWide), // ini: init
		extendedReply(0x13, nil),           // ini: write
		extendedReply(0x12, nil),           // ini: exit

		extendedReply(0x11, initReplyWide), // cold: init
		extendedReply(0x13, nil),           // cold: write
		extendedReply(0x12, nil),           // cold: exit

		extendedReply(0x11, initReplyWide), // hot: init
		extendedReply(0x15, nil),           // hot: link
		extendedReply(0x13, nil),           // hot: write
		extendedReply(0x12, nil),           // hot: exit
	)
	conn := transport.NewConnection(replies)

	err := UploadProgram(conn, UploadProgramRequest{
		Name:        "prog",
		Description: "d",
		Icon:        "USER900x.bmp",
		IDE:         "PROS",
		Slot:        0,
		Data:        DataBoth,
		ColdBin:     []byte("COLDBYTES"),
		HotBin:      []byte("HOTBYTES"),
		AfterUpload: proto.ExitRunProgram,
	}, nil)
	require.NoError(t, err)

	// 10 sends expected: (init,write,exit) x2 + (init,link,write,exit).
	require.Len(t, replies.written, 10)

	extCmds := make([]byte, len(replies.written))
	for i, w := range replies.written {
		ext, _ := parseSent(t, w)
		extCmds[i] = ext
	}
	require.Equal(t, []byte{0x11, 0x13, 0x12, 0x11, 0x13, 0x12, 0x11, 0x15, 0x13, 0x12}, extCmds)

	// Cold init (index 3) carries load address 0x03800000, exit action
	// DoNothing (index 5, since hot still follows); hot init (index 6)
	// carries 0x07800000, exit action RunProgram (index 9).
	_, coldInitPayload := parseSent(t, replies.written[3])
	require.Equal(t, []byte{0x02, 0x00, 0x01, 0x01}, coldInitPayload[:4]) // operation=Write,target,vendor,option=Overwrite
	loadAddr := uint32(coldInitPayload[8]) | uint32(coldInitPayload[9])<<8 | uint32(coldInitPayload[10])<<16 | uint32(coldInitPayload[11])<<24
	require.Equal(t, uint32(ColdStart), loadAddr)

	_, coldExitPayload := parseSent(t, replies.written[5])
	require.Equal(t, []byte{byte(proto.ExitDoNothing)}, coldExitPayload)

	_, hotInitPayload := parseSent(t, replies.written[6])
	hotAddr := uint32(hotInitPayload[8]) | uint32(hotInitPayload[9])<<8 | uint32(hotInitPayload[10])<<16 | uint32(hotInitPayload[11])<<24
	require.Equal(t, uint32(HotStart), hotAddr)

	_, hotExitPayload := parseSent(t, replies.written[9])
	require.Equal(t, []byte{byte(proto.ExitRunProgram)}, hotExitPayload)

	_, linkPayload := parseSent(t, replies.written[7])
	require.Equal(t, byte(proto.VendorUser), linkPayload[0])
}

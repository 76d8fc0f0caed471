package filexfer

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brainlink/v5serial/pkg/proto"
	"github.com/brainlink/v5serial/pkg/transport"
)

// queuedPipe serves a fixed queue of device replies, one per
// request/receive cycle, regardless of what bytes were written. Tests
// build the queue to match a specific exchange sequence.
type queuedPipe struct {
	replies [][]byte
	cur     []byte
	written [][]byte
}

func newQueuedPipe(replies ...[]byte) *queuedPipe {
	return &queuedPipe{replies: replies}
}

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

// extendedReply builds a scripted device->host extended frame (ack
// success + payload), CRC included, without going through the encoder
// the production code under test also uses -- built by hand so a bug
// in the framer can't cancel itself out here.
func extendedReply(t *testing.T, extCmd byte, payload []byte) []byte {
	t.Helper()
	body := append([]byte{0x76}, payload...)
	buf := []byte{0xAA, 0x55, 0x56, extCmd}
	if len(body) > 0x7F {
		buf = append(buf, byte(len(body)>>8)|0x80, byte(len(body)))
	} else {
		buf = append(buf, byte(len(body)))
	}
	buf = append(buf, body...)
	sum := crc16(buf)
	buf = append(buf, byte(sum>>8), byte(sum))
	return buf
}

// crc16 duplicates internal/crc's CCITT-FALSE algorithm locally so the
// test fixture doesn't depend on the package it's meant to exercise.
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

func TestDownloadSixByteFile(t *testing.T) {
	// window_size=4, file_size=6: two ReadFile chunks of 4 then 2 bytes
	// spelling "hello\n".
	initPayload := []byte{0x04, 0x00, 0x06, 0x00, 0x00, 0x00, 0, 0, 0, 0}
	chunk1 := append([]byte{0, 0, 0, 0}, []byte("hell")...)
	chunk2 := append([]byte{4, 0, 0, 0}, []byte("o\n")...)
	exitPayload := []byte{}

	pipe := newQueuedPipe(
		extendedReply(t, 0x11, initPayload),
		extendedReply(t, 0x14, chunk1),
		extendedReply(t, 0x14, chunk2),
		extendedReply(t, 0x12, exitPayload),
	)
	conn := transport.NewConnection(pipe)

	data, err := Download(conn, DownloadRequest{
		Vendor: proto.VendorUser,
		Name:   "slot1.bin",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))
	require.Len(t, pipe.written, 4)

	// Every ReadFile request carries the fixed window_size chunk (4),
	// never a remaining-bytes-clamped size, even for the final chunk
	// that only returns 2 bytes.
	firstReq := extractWritePayload(t, pipe.written[1])
	secondReq := extractWritePayload(t, pipe.written[2])
	require.Equal(t, uint16(4), binary.LittleEndian.Uint16(firstReq[4:6]))
	require.Equal(t, uint16(4), binary.LittleEndian.Uint16(secondReq[4:6]))
}

func TestUploadNineByteFile(t *testing.T) {
	// window_size=6 rounds up to chunk 8; "abcdefghi" splits into
	// "abcdefgh" + "i".
	initPayload := []byte{0x06, 0x00, 0, 0, 0, 0, 0, 0, 0, 0}
	pipe := newQueuedPipe(
		extendedReply(t, 0x11, initPayload),
		extendedReply(t, 0x13, nil),
		extendedReply(t, 0x13, nil),
		extendedReply(t, 0x12, nil),
	)
	conn := transport.NewConnection(pipe)

	err := Upload(conn, UploadRequest{
		Vendor:      proto.VendorUser,
		Name:        "slot1.bin",
		Data:        []byte("abcdefghi"),
		AfterUpload: proto.ExitRunProgram,
	}, nil)
	require.NoError(t, err)
	require.Len(t, pipe.written, 4)

	// Decode the two WriteFile request frames to check chunk boundaries.
	firstChunk := extractWritePayload(t, pipe.written[1])
	secondChunk := extractWritePayload(t, pipe.written[2])
	require.Equal(t, "abcdefgh", string(firstChunk[4:]))
	require.Equal(t, "i", string(secondChunk[4:]))
}

func TestDownloadNackAbortsSession(t *testing.T) {
	// Init reply ACK 0xD2 aborts; no Write/Exit follow.
	buf := []byte{0xAA, 0x55, 0x56, 0x11, 0x01, 0xD2}
	sum := crc16(buf)
	buf = append(buf, byte(sum>>8), byte(sum))

	pipe := newQueuedPipe(buf)
	conn := transport.NewConnection(pipe)

	_, err := Download(conn, DownloadRequest{Vendor: proto.VendorUser, Name: "x.bin"}, nil)
	require.Error(t, err)
	var nackErr *proto.NackError
	require.ErrorAs(t, err, &nackErr)
	require.Equal(t, proto.AckWriteCrcWrong, nackErr.Code)
	require.Len(t, pipe.written, 1)
}

func extractWritePayload(t *testing.T, frame []byte) []byte {
	t.Helper()
	// host->device simple-dialect-wrapped extended frame:
	// C9 36 B8 47 56 <extcmd> <varlen...> <payload> <crc16>
	require.Equal(t, byte(0x56), frame[4])
	idx := 6
	first := frame[idx]
	if first&0x80 != 0 {
		idx += 2
	} else {
		idx++
	}
	return frame[idx : len(frame)-2]
}

package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

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

func TestStoreGetReturnsValue(t *testing.T) {
	pipe := newQueuedPipe(extendedReply(0x2E, append([]byte("team_number"), 0)))
	store := NewStore(transport.NewConnection(pipe))

	val, err := store.Get("team")
	require.NoError(t, err)
	require.Equal(t, "team_number", val)
}

func TestStoreSetSendsKeyAndValue(t *testing.T) {
	pipe := newQueuedPipe(extendedReply(0x2F, nil))
	store := NewStore(transport.NewConnection(pipe))

	require.NoError(t, store.Set("team", "1234A"))
	require.Len(t, pipe.written, 1)
}

package transport

import (
	"time"

	"github.com/brainlink/v5serial/pkg/proto"
)

// UserIO exposes the user program's stdio channel. A Brain with a
// separate user USB port talks to it directly, bypassing framing
// entirely; a Controller (or a Brain opened with only its system
// port) has no such port, so reads and writes are tunneled through
// the framed connection as extended UserFifo packets.
type UserIO struct {
	direct Pipe
	tunnel *Connection
}

// NewDirectUserIO wraps a brain's dedicated user byte pipe.
func NewDirectUserIO(pipe Pipe) *UserIO {
	return &UserIO{direct: pipe}
}

// NewTunneledUserIO multiplexes user I/O over conn's framed channel.
func NewTunneledUserIO(conn *Connection) *UserIO {
	return &UserIO{tunnel: conn}
}

// Write sends data on the stdio channel, chunked to UserIOMaxPayload
// when tunneled.
func (u *UserIO) Write(data []byte) (int, error) {
	if u.direct != nil {
		return u.direct.Write(data)
	}
	sent := 0
	for len(data) > 0 {
		chunk := data
		if len(chunk) > proto.UserIOMaxPayload {
			chunk = chunk[:proto.UserIOMaxPayload]
		}
		req := proto.UserFifoRequest{Channel: proto.UserIOChannelStdio, Write: chunk}
		var reply proto.UserFifoReply
		if err := u.tunnel.Handshake(req, &reply, time.Second, 1); err != nil {
			return sent, err
		}
		sent += len(chunk)
		data = data[len(chunk):]
	}
	return sent, nil
}

// Read returns whatever bytes the device currently has buffered on the
// stdio channel, up to len(p) (direct) or a device-chosen chunk
// (tunneled). It does not block waiting for more than one frame.
// tunneledReadMax caps a single UserFifo read request. PROS's own
// read_serial_raw caps reads at 64 bytes even though writes use the
// larger 224-byte frame payload limit; this mirrors that asymmetry.
const tunneledReadMax = 64

func (u *UserIO) Read(p []byte) (int, error) {
	if u.direct != nil {
		return u.direct.Read(p)
	}
	readMax := len(p)
	if readMax > tunneledReadMax {
		readMax = tunneledReadMax
	}
	req := proto.UserFifoRequest{Channel: proto.UserIOChannelStdio, ReadMax: uint8(readMax)}
	var reply proto.UserFifoReply
	if err := u.tunnel.Handshake(req, &reply, time.Second, 1); err != nil {
		return 0, err
	}
	n := copy(p, reply.Data)
	return n, nil
}

// Package transport owns the byte pipe to a brain or controller:
// framing requests onto it, reading and deframing replies, retrying a
// handshake on timeout, and retaining partial frames across
// suspension points.
package transport

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/brainlink/v5serial/internal/fifo"
	"github.com/brainlink/v5serial/pkg/framer"
	"github.com/brainlink/v5serial/pkg/proto"
)

// inputBufferSize is generous relative to the largest practical frame
// (a 4096-byte chunk plus header/CRC overhead).
const inputBufferSize = 8192

// readPollSize caps a single pipe read so Receive can re-check its
// deadline often instead of blocking past it.
const readPollSize = 1024

// Pipe is the byte transport a Connection frames requests onto. It is
// satisfied directly by *go.bug.st/serial.Port, and by any net.Conn
// wrapped with a deadline adapter.
type Pipe interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// Connection serializes access to one Pipe and turns its bytes into
// typed packet exchanges. The zero value is not usable; construct with
// NewConnection.
type Connection struct {
	pipe         Pipe
	buf          *fifo.Fifo
	garbageBound int

	mu   sync.Mutex
	busy bool

	log *log.Entry
}

// NewConnection wraps pipe. The caller retains ownership of pipe's
// lifecycle beyond Close.
func NewConnection(pipe Pipe) *Connection {
	return &Connection{
		pipe:         pipe,
		buf:          fifo.New(inputBufferSize),
		garbageBound: framer.DefaultGarbageBound,
		log:          log.WithField("component", "transport"),
	}
}

func (c *Connection) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Connection) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// Send encodes req and writes it to the pipe. It marks the connection
// busy until a matching Receive completes, failing fast if a previous
// request is still outstanding.
func (c *Connection) Send(req proto.Request) error {
	if err := c.acquire(); err != nil {
		return err
	}
	wire, err := framer.EncodeRequest(req)
	if err != nil {
		c.release()
		return err
	}
	c.log.Debugf("[TX] cmd=0x%02X %d bytes", req.CommandID(), len(wire))
	if _, err := c.pipe.Write(wire); err != nil {
		c.release()
		return err
	}
	return nil
}

// Receive reads until a complete frame matching req's command pair
// decodes into reply, or timeout elapses. A complete frame carrying any
// other command pair is consumed and ends the call with
// *framer.UnexpectedCommandError. It always clears the busy flag set by
// Send, whether it succeeds or fails.
func (c *Connection) Receive(timeout time.Duration, req proto.Request, reply proto.Reply) error {
	defer c.release()
	deadline := time.Now().Add(timeout)
	wantExt, wantIsExt := req.Extended()

	for {
		snapshot := make([]byte, c.buf.Occupied())
		c.buf.Peek(snapshot, 0)

		frame, err := framer.Decode(snapshot, c.garbageBound)
		switch {
		case err == nil:
			c.buf.Discard(frame.Consumed)
			if frame.Cmd != req.CommandID() || frame.Extended != wantIsExt || (wantIsExt && frame.ExtCmd != wantExt) {
				return &framer.UnexpectedCommandError{Got: frame.Cmd, GotExt: frame.ExtCmd, Extended: frame.Extended}
			}
			c.log.Debugf("[RX] cmd=0x%02X %d bytes", frame.Cmd, len(frame.Payload))
			return reply.DecodePayload(frame.Payload)
		case errors.As(err, new(*proto.NackError)):
			c.buf.Discard(frame.Consumed)
			c.log.Warnf("[RX] device nack: %v", err)
			return err
		case errors.Is(err, framer.ErrNoFrameFound):
			c.buf.Discard(c.garbageBound)
			c.log.Warnf("[RX] discarded %d bytes without a frame", c.garbageBound)
		case errors.Is(err, framer.ErrFrameCRC):
			c.log.Warnf("[RX] frame CRC mismatch")
			return err
		case errors.Is(err, framer.ErrIncomplete):
			// fall through to read more bytes
		default:
			return err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		if err := c.readMore(remaining); err != nil {
			return err
		}
	}
}

func (c *Connection) readMore(remaining time.Duration) error {
	want := remaining
	if want > time.Second {
		want = time.Second
	}
	if err := c.pipe.SetReadTimeout(want); err != nil {
		return err
	}
	tmp := make([]byte, readPollSize)
	n, err := c.pipe.Read(tmp)
	if n > 0 {
		c.buf.Write(tmp[:n])
	}
	if err != nil && !isTimeoutErr(err) {
		return err
	}
	return nil
}

// Handshake sends req and retries on timeout or a transient framing
// error up to maxRetries times, waiting retryInterval for each reply.
// Any other error aborts immediately.
func (c *Connection) Handshake(req proto.Request, reply proto.Reply, retryInterval time.Duration, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.Send(req); err != nil {
			return err
		}
		err := c.Receive(retryInterval, req, reply)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		c.log.Debugf("[HANDSHAKE] attempt %d/%d failed: %v", attempt+1, maxRetries+1, err)
	}
	return lastErr
}

func retryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, framer.ErrNoFrameFound) ||
		errors.Is(err, framer.ErrFrameCRC) ||
		errors.Is(err, framer.ErrIncomplete)
}

// Flush drops any bytes retained in the input buffer.
func (c *Connection) Flush() {
	c.buf.Reset()
}

// Close releases the underlying pipe.
func (c *Connection) Close() error {
	return c.pipe.Close()
}

type timeouter interface {
	Timeout() bool
}

func isTimeoutErr(err error) bool {
	var t timeouter
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}

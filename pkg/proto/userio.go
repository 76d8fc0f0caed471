package proto

import "github.com/brainlink/v5serial/pkg/codec"

const extUserFifo = 0x27

// UserIOChannel identifies the tunneled stream multiplexed over
// UserFifo. Channel 1 is stdio.
const UserIOChannelStdio uint8 = 1

func init() {
	register("UserFifo", cmdExtended, extUserFifo, true, func() Reply { return &UserFifoReply{} })
}

// UserFifoRequest reads from, or writes to, the device's user I/O
// channel in one round trip. Write carries outbound bytes (capped at
// UserIOMaxPayload); ReadMax bounds how many bytes the device may
// return when Write is empty.
type UserFifoRequest struct {
	Channel  uint8
	Write    []byte
	ReadMax  uint8
}

func (UserFifoRequest) CommandID() byte       { return cmdExtended }
func (UserFifoRequest) Extended() (byte, bool) { return extUserFifo, true }
func (UserFifoRequest) NewReply() Reply        { return &UserFifoReply{} }

func (r UserFifoRequest) EncodePayload() ([]byte, error) {
	if len(r.Write) > UserIOMaxPayload {
		return nil, codec.ErrEncodeTooLarge
	}
	buf := make([]byte, 0, 2+len(r.Write))
	buf = append(buf, r.Channel, r.ReadMax)
	buf = append(buf, r.Write...)
	return buf, nil
}

// UserFifoReply carries the channel and whatever bytes the device had
// buffered for it.
type UserFifoReply struct {
	Channel uint8
	Data    []byte
}

func (r *UserFifoReply) DecodePayload(data []byte) error {
	if len(data) < 1 {
		return codec.ErrUnexpectedEnd
	}
	r.Channel = data[0]
	r.Data = append([]byte(nil), data[1:]...)
	return nil
}

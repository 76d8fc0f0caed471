package proto

const extSwitchChannel = 0x10

func init() {
	register("SwitchChannel", cmdExtended, extSwitchChannel, true, func() Reply { return &SwitchChannelReply{} })
}

// SwitchChannelRequest moves a controller onto a radio channel for the
// scope of an upcoming command. It is a no-op on a brain.
type SwitchChannelRequest struct {
	Channel ControllerChannel
}

func (SwitchChannelRequest) CommandID() byte       { return cmdExtended }
func (SwitchChannelRequest) Extended() (byte, bool) { return extSwitchChannel, true }
func (SwitchChannelRequest) NewReply() Reply        { return &SwitchChannelReply{} }

func (r SwitchChannelRequest) EncodePayload() ([]byte, error) {
	return []byte{byte(r.Channel)}, nil
}

// SwitchChannelReply carries no fields beyond the ack.
type SwitchChannelReply struct{}

func (r *SwitchChannelReply) DecodePayload(data []byte) error { return nil }

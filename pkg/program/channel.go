package program

import (
	"time"

	"github.com/brainlink/v5serial/pkg/proto"
	"github.com/brainlink/v5serial/pkg/transport"
)

const channelSwitchTimeout = 200 * time.Millisecond

// DetectProduct classifies the peer at the other end of conn using
// GetSystemVersion, so WithChannel knows whether a channel switch
// applies at all.
func DetectProduct(conn *transport.Connection) (proto.Product, error) {
	var reply proto.GetSystemVersionReply
	if err := conn.Handshake(proto.GetSystemVersionRequest{}, &reply, channelSwitchTimeout, 2); err != nil {
		return 0, err
	}
	return reply.Product, nil
}

// WithChannel runs work with the controller switched onto ch, always
// switching back to the pit channel afterward regardless of whether
// work succeeded. On a brain (or anything that isn't a controller) the
// switch is a silent no-op, and work simply runs.
func WithChannel(conn *transport.Connection, product proto.Product, ch proto.ControllerChannel, work func() error) error {
	if product != proto.ProductV5Controller {
		return work()
	}

	if err := switchChannel(conn, ch); err != nil {
		return err
	}

	workErr := work()

	if err := switchChannel(conn, proto.ChannelPit); err != nil {
		if workErr != nil {
			return workErr
		}
		return err
	}
	return workErr
}

func switchChannel(conn *transport.Connection, ch proto.ControllerChannel) error {
	var reply proto.SwitchChannelReply
	return conn.Handshake(proto.SwitchChannelRequest{Channel: ch}, &reply, channelSwitchTimeout, 2)
}

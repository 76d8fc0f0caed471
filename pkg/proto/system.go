package proto

import "github.com/brainlink/v5serial/pkg/codec"

const cmdGetSystemVersion = 0xA4

func init() {
	register("GetSystemVersion", cmdGetSystemVersion, 0, false, func() Reply { return &GetSystemVersionReply{} })
}

// GetSystemVersionRequest asks the device for its firmware version and
// product identity. It carries no payload.
type GetSystemVersionRequest struct{}

func (GetSystemVersionRequest) CommandID() byte                { return cmdGetSystemVersion }
func (GetSystemVersionRequest) Extended() (byte, bool)          { return 0, false }
func (GetSystemVersionRequest) EncodePayload() ([]byte, error) { return nil, nil }
func (GetSystemVersionRequest) NewReply() Reply                { return &GetSystemVersionReply{} }

// GetSystemVersionReply is the simple-dialect reply to
// GetSystemVersion: a five-field version tuple followed by a product
// byte and a product flag byte. The simple dialect's device-to-host length byte counts
// the command byte itself, so a 7-byte payload here arrives behind a
// length value of 8; DecodePayload is handed only the 7 payload bytes,
// with that length byte already consumed by the frame decoder.
type GetSystemVersionReply struct {
	SystemVersion [5]uint8
	Product       Product
	ProductFlag   uint8
}

func (r *GetSystemVersionReply) DecodePayload(data []byte) error {
	if len(data) < 7 {
		return codec.ErrUnexpectedEnd
	}
	copy(r.SystemVersion[:], data[0:5])
	r.Product = Product(data[5])
	r.ProductFlag = data[6]
	return nil
}

package proto

import "github.com/brainlink/v5serial/pkg/codec"

const extGetDeviceStatus = 0x21

func init() {
	register("GetDeviceStatus", cmdExtended, extGetDeviceStatus, true, func() Reply { return &GetDeviceStatusReply{} })
}

// GetDeviceStatusRequest enumerates the smart devices plugged into the
// brain. It carries no payload.
type GetDeviceStatusRequest struct{}

func (GetDeviceStatusRequest) CommandID() byte                { return cmdExtended }
func (GetDeviceStatusRequest) Extended() (byte, bool)          { return extGetDeviceStatus, true }
func (GetDeviceStatusRequest) EncodePayload() ([]byte, error) { return nil, nil }
func (GetDeviceStatusRequest) NewReply() Reply                { return &GetDeviceStatusReply{} }

// DeviceEntry is one slot of the device status table. Only the fields
// needed to route further commands are decoded; device-type-specific
// telemetry is left as RawStatus for a caller that cares.
type DeviceEntry struct {
	Port       uint8
	DeviceType uint8
	RawStatus  uint8
	Beta       uint8
}

// GetDeviceStatusReply lists the devices the brain currently sees.
type GetDeviceStatusReply struct {
	Devices []DeviceEntry
}

func (r *GetDeviceStatusReply) DecodePayload(data []byte) error {
	if len(data) < 1 {
		return codec.ErrUnexpectedEnd
	}
	count := int(data[0])
	data = data[1:]
	const entrySize = 4
	if len(data) < count*entrySize {
		return codec.ErrUnexpectedEnd
	}
	r.Devices = make([]DeviceEntry, count)
	for i := 0; i < count; i++ {
		e := data[i*entrySize : (i+1)*entrySize]
		r.Devices[i] = DeviceEntry{
			Port:       e[0],
			DeviceType: e[1],
			RawStatus:  e[2],
			Beta:       e[3],
		}
	}
	return nil
}

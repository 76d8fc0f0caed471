package codec

import "time"

// J2000Epoch is 2000-01-01T00:00:00Z expressed as seconds since the Unix
// epoch, the origin of the protocol's timestamp field.
const J2000Epoch int64 = 946684800

// Clock supplies the current time. Production code uses SystemClock;
// tests inject a fixed clock so packet encoding is deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// J2000Timestamp returns the protocol's timestamp field for clk's current
// time: milliseconds since the Unix epoch minus the J2000 epoch constant,
// truncated to a signed 32-bit integer. The epoch constant is in seconds
// reused directly against a millisecond reading, matching what shipped
// host software actually sends on the wire.
func J2000Timestamp(clk Clock) int32 {
	deltaMs := clk.Now().UnixMilli() - J2000Epoch
	return int32(deltaMs)
}

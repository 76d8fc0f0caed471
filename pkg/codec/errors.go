package codec

import "errors"

// ErrUnexpectedEnd is returned when a decode operation needs more bytes
// than are available.
var ErrUnexpectedEnd = errors.New("codec: unexpected end of data")

// ErrEncodeTooLarge is returned when a value exceeds the wire schema's
// capacity at encode time (e.g. a name longer than its fixed field).
var ErrEncodeTooLarge = errors.New("codec: value exceeds field capacity")

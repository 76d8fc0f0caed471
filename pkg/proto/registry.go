package proto

import "fmt"

// Request is a host-to-device packet. Extended reports whether the
// packet uses the extended dialect (command 0x56 wrapping an inner
// extended command) and, if so, the extended command's ID.
type Request interface {
	CommandID() byte
	Extended() (extCmd byte, ok bool)
	EncodePayload() ([]byte, error)
}

// Reply is a device-to-host packet body. DecodePayload receives the
// bytes following the frame header (and, for extended replies, after
// the leading ack byte has already been checked and stripped).
type Reply interface {
	DecodePayload(data []byte) error
}

// Exchange pairs a request with the reply type it expects, so a
// transport can route an inbound frame to the right decoder without
// the caller naming it twice.
type Exchange interface {
	Request
	NewReply() Reply
}

type key struct {
	cmd    byte
	ext    byte
	isExt  bool
}

// Descriptor names a catalog entry for introspection (logging, CLI
// listings) without requiring a live Request value.
type Descriptor struct {
	Name      string
	NewReply  func() Reply
}

var catalog = map[key]Descriptor{}

func register(name string, cmd byte, ext byte, isExt bool, newReply func() Reply) {
	k := key{cmd: cmd, ext: ext, isExt: isExt}
	if _, dup := catalog[k]; dup {
		panic(fmt.Sprintf("proto: duplicate catalog registration for %s", name))
	}
	catalog[k] = Descriptor{Name: name, NewReply: newReply}
}

// Lookup returns the catalog entry matching a decoded frame's command
// (and, for extended frames, its inner extended command).
func Lookup(cmd byte, ext byte, isExt bool) (Descriptor, bool) {
	d, ok := catalog[key{cmd: cmd, ext: ext, isExt: isExt}]
	return d, ok
}

func extKeyOf(r Request) key {
	if ext, ok := r.Extended(); ok {
		return key{cmd: r.CommandID(), ext: ext, isExt: true}
	}
	return key{cmd: r.CommandID()}
}

// NewReplyFor constructs the zero-value reply the catalog associates
// with req, for a caller that only has the request in hand.
func NewReplyFor(req Request) (Reply, bool) {
	d, ok := catalog[extKeyOf(req)]
	if !ok {
		return nil, false
	}
	return d.NewReply(), true
}

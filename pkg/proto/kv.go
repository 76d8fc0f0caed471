package proto

import "github.com/brainlink/v5serial/pkg/codec"

const (
	extKVRead  = 0x2E
	extKVWrite = 0x2F
	// kvMaxLen bounds both key and value strings; the device's KV store
	// is a small persistent settings table, not a general blob store.
	kvMaxLen = 63
)

func init() {
	register("KVRead", cmdExtended, extKVRead, true, func() Reply { return &KVReadReply{} })
	register("KVWrite", cmdExtended, extKVWrite, true, func() Reply { return &KVWriteReply{} })
}

// KVReadRequest fetches the value stored under Key.
type KVReadRequest struct {
	Key string
}

func (KVReadRequest) CommandID() byte       { return cmdExtended }
func (KVReadRequest) Extended() (byte, bool) { return extKVRead, true }
func (KVReadRequest) NewReply() Reply        { return &KVReadReply{} }

func (r KVReadRequest) EncodePayload() ([]byte, error) {
	return codec.EncodeVarString(nil, r.Key, kvMaxLen)
}

// KVReadReply carries the stored value, or an empty string if unset.
type KVReadReply struct {
	Value string
}

func (r *KVReadReply) DecodePayload(data []byte) error {
	v, _, err := codec.DecodeVarString(data, kvMaxLen)
	if err != nil {
		return err
	}
	r.Value = v
	return nil
}

// KVWriteRequest stores Value under Key.
type KVWriteRequest struct {
	Key   string
	Value string
}

func (KVWriteRequest) CommandID() byte       { return cmdExtended }
func (KVWriteRequest) Extended() (byte, bool) { return extKVWrite, true }
func (KVWriteRequest) NewReply() Reply        { return &KVWriteReply{} }

func (r KVWriteRequest) EncodePayload() ([]byte, error) {
	buf, err := codec.EncodeVarString(nil, r.Key, kvMaxLen)
	if err != nil {
		return nil, err
	}
	return codec.EncodeVarString(buf, r.Value, kvMaxLen)
}

// KVWriteReply carries no fields beyond the ack.
type KVWriteReply struct{}

func (r *KVWriteReply) DecodePayload(data []byte) error { return nil }

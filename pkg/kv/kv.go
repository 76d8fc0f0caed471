// Package kv wraps the KVRead/KVWrite packets in a small ergonomic
// accessor: a thin struct holding the thing that actually talks to the
// device, exposing named Get/Set methods instead of making every
// caller build a request packet by hand.
package kv

import (
	"time"

	"github.com/brainlink/v5serial/pkg/proto"
	"github.com/brainlink/v5serial/pkg/transport"
)

const defaultTimeout = 500 * time.Millisecond

// Store is a device's small persistent key/value settings table,
// accessed over an already-open connection.
type Store struct {
	conn *transport.Connection
}

// NewStore wraps conn. The caller retains ownership of conn's lifecycle.
func NewStore(conn *transport.Connection) *Store {
	return &Store{conn: conn}
}

// Get fetches the value stored under key, or "" if unset.
func (s *Store) Get(key string) (string, error) {
	var reply proto.KVReadReply
	if err := s.conn.Handshake(proto.KVReadRequest{Key: key}, &reply, defaultTimeout, 2); err != nil {
		return "", err
	}
	return reply.Value, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	var reply proto.KVWriteReply
	return s.conn.Handshake(proto.KVWriteRequest{Key: key, Value: value}, &reply, defaultTimeout, 2)
}

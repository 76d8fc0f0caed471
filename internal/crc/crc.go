// Package crc implements the two checksums used by the wire protocol:
// a CRC16 (CCITT-FALSE) run incrementally over frame bytes and a CRC32
// run over whole file payloads.
package crc

// CRC16 is a CCITT-FALSE checksum (poly 0x1021, init 0, no reflection,
// no final xor), accumulated one byte at a time the way the frame
// builder feeds it bytes as it writes them.
type CRC16 uint16

// Single folds one byte into the running CRC16.
func (crc *CRC16) Single(b byte) {
	*crc ^= CRC16(b) << 8
	for i := 0; i < 8; i++ {
		if (*crc & 0x8000) != 0 {
			*crc = (*crc << 1) ^ 0x1021
		} else {
			*crc <<= 1
		}
	}
}

// Block folds a byte slice into the running CRC16 and returns it.
func (crc CRC16) Block(data []byte) CRC16 {
	for _, b := range data {
		crc.Single(b)
	}
	return crc
}

// ComputeCRC16 computes the CRC16 of data from a zero initial value.
func ComputeCRC16(data []byte) CRC16 {
	var crc CRC16
	for _, b := range data {
		crc.Single(b)
	}
	return crc
}

// CRC32 is the checksum used to verify whole file payloads during
// upload/download (poly 0x04C11DB7, init 0, no reflection, no final xor).
type CRC32 uint32

// Single folds one byte into the running CRC32.
func (crc *CRC32) Single(b byte) {
	*crc ^= CRC32(b) << 24
	for i := 0; i < 8; i++ {
		if (*crc & 0x80000000) != 0 {
			*crc = (*crc << 1) ^ 0x04C11DB7
		} else {
			*crc <<= 1
		}
	}
}

// ComputeCRC32 computes the CRC32 of data from a zero initial value.
func ComputeCRC32(data []byte) CRC32 {
	var crc CRC32
	for _, b := range data {
		crc.Single(b)
	}
	return crc
}

package proto

import (
	"github.com/brainlink/v5serial/pkg/codec"
)

const (
	extInitFileTransfer = 0x11
	extExitFileTransfer = 0x12
	extWriteFile        = 0x13
	extReadFile         = 0x14
	extLinkFile         = 0x15
)

func init() {
	register("InitFileTransfer", cmdExtended, extInitFileTransfer, true, func() Reply { return &InitFileTransferReply{} })
	register("ExitFileTransfer", cmdExtended, extExitFileTransfer, true, func() Reply { return &ExitFileTransferReply{} })
	register("WriteFile", cmdExtended, extWriteFile, true, func() Reply { return &WriteFileReply{} })
	register("ReadFile", cmdExtended, extReadFile, true, func() Reply { return &ReadFileReply{} })
	register("LinkFile", cmdExtended, extLinkFile, true, func() Reply { return &LinkFileReply{} })
}

// InitFileTransferRequest opens a file-transfer session. WriteFileSize
// and WriteFileCRC are only meaningful for write (upload) sessions; on
// a read session the caller may set WriteFileSize to the expected
// download size or leave it 0.
type InitFileTransferRequest struct {
	Operation     InitAction
	Target        FileTarget
	Vendor        FileVendor
	Option        InitOption
	WriteFileSize uint32
	LoadAddress   uint32
	WriteFileCRC  uint32
	FileExtension string
	Timestamp     int32
	Version       Version
	FileName      string
}

func (InitFileTransferRequest) CommandID() byte       { return cmdExtended }
func (InitFileTransferRequest) Extended() (byte, bool) { return extInitFileTransfer, true }
func (InitFileTransferRequest) NewReply() Reply        { return &InitFileTransferReply{} }

func (r InitFileTransferRequest) EncodePayload() ([]byte, error) {
	buf := make([]byte, 0, 52)
	buf = append(buf, byte(r.Operation), byte(r.Target), byte(r.Vendor), byte(r.Option))
	buf = putU32LE(buf, r.WriteFileSize)
	buf = putU32LE(buf, r.LoadAddress)
	buf = putU32LE(buf, r.WriteFileCRC)
	var err error
	buf, err = codec.EncodeFixedString(buf, r.FileExtension, FileExtensionCapacity)
	if err != nil {
		return nil, err
	}
	buf = putU32LE(buf, uint32(r.Timestamp))
	buf = append(buf, r.Version.Major, r.Version.Minor, r.Version.Build, r.Version.Beta)
	buf, err = codec.EncodeFixedString(buf, r.FileName, FileNameCapacity)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// InitFileTransferReply reports the device's negotiated window size and
// the file's size/CRC as known to the device.
type InitFileTransferReply struct {
	WindowSize codec.VarU16
	FileSize   uint32
	FileCRC    uint32
}

func (r *InitFileTransferReply) DecodePayload(data []byte) error {
	if len(data) < 10 {
		return codec.ErrUnexpectedEnd
	}
	r.WindowSize = codec.VarU16(getU16LE(data[0:2]))
	r.FileSize = getU32LE(data[2:6])
	r.FileCRC = getU32LE(data[6:10])
	return nil
}

// ExitFileTransferRequest closes the open session and tells the device
// what to do next.
type ExitFileTransferRequest struct {
	Action ExitAction
}

func (ExitFileTransferRequest) CommandID() byte                      { return cmdExtended }
func (ExitFileTransferRequest) Extended() (byte, bool)                { return extExitFileTransfer, true }
func (ExitFileTransferRequest) NewReply() Reply                       { return &ExitFileTransferReply{} }
func (r ExitFileTransferRequest) EncodePayload() ([]byte, error) { return []byte{byte(r.Action)}, nil }

// ExitFileTransferReply carries no fields; success is implied by ack.
type ExitFileTransferReply struct{}

func (r *ExitFileTransferReply) DecodePayload(data []byte) error { return nil }

// WriteFileRequest writes one chunk of a file upload at Address. Data
// must be a multiple of 4 bytes except for the final chunk of a
// transfer.
type WriteFileRequest struct {
	Address uint32
	Data    []byte
}

func (WriteFileRequest) CommandID() byte       { return cmdExtended }
func (WriteFileRequest) Extended() (byte, bool) { return extWriteFile, true }
func (WriteFileRequest) NewReply() Reply        { return &WriteFileReply{} }

func (r WriteFileRequest) EncodePayload() ([]byte, error) {
	buf := make([]byte, 0, 4+len(r.Data))
	buf = putU32LE(buf, r.Address)
	buf = append(buf, r.Data...)
	return buf, nil
}

// WriteFileReply carries no fields beyond the ack.
type WriteFileReply struct{}

func (r *WriteFileReply) DecodePayload(data []byte) error { return nil }

// ReadFileRequest requests Size bytes from Address during a download.
type ReadFileRequest struct {
	Address uint32
	Size    uint16
}

func (ReadFileRequest) CommandID() byte       { return cmdExtended }
func (ReadFileRequest) Extended() (byte, bool) { return extReadFile, true }
func (ReadFileRequest) NewReply() Reply        { return &ReadFileReply{} }

func (r ReadFileRequest) EncodePayload() ([]byte, error) {
	buf := make([]byte, 0, 6)
	buf = putU32LE(buf, r.Address)
	buf = append(buf, byte(r.Size), byte(r.Size>>8))
	return buf, nil
}

// ReadFileReply echoes the address the data was read from, followed by
// the chunk itself.
type ReadFileReply struct {
	Address uint32
	Data    []byte
}

func (r *ReadFileReply) DecodePayload(data []byte) error {
	if len(data) < 4 {
		return codec.ErrUnexpectedEnd
	}
	r.Address = getU32LE(data[0:4])
	r.Data = append([]byte(nil), data[4:]...)
	return nil
}

// LinkFileRequest associates the file currently being uploaded with a
// companion file already on the device (the hot/cold library pairing).
type LinkFileRequest struct {
	Vendor       FileVendor
	Option       uint8
	RequiredFile string
}

func (LinkFileRequest) CommandID() byte       { return cmdExtended }
func (LinkFileRequest) Extended() (byte, bool) { return extLinkFile, true }
func (LinkFileRequest) NewReply() Reply        { return &LinkFileReply{} }

func (r LinkFileRequest) EncodePayload() ([]byte, error) {
	buf := []byte{byte(r.Vendor), r.Option}
	return codec.EncodeFixedString(buf, r.RequiredFile, FileNameCapacity)
}

// LinkFileReply carries no fields beyond the ack.
type LinkFileReply struct{}

func (r *LinkFileReply) DecodePayload(data []byte) error { return nil }

func putU32LE(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func getU32LE(data []byte) uint32 {
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
}

func getU16LE(data []byte) uint16 {
	return uint16(data[0]) | uint16(data[1])<<8
}

package proto

import "github.com/brainlink/v5serial/pkg/codec"

const (
	extGetFileMetadataByName  = 0x19
	extGetFileMetadataByIndex = 0x1A
	extSetFileMetadata        = 0x1B
	extDeleteFile             = 0x1C
	extGetDirectoryCount      = 0x16
	extExecuteFile            = 0x18
)

func init() {
	register("GetFileMetadataByName", cmdExtended, extGetFileMetadataByName, true, func() Reply { return &FileMetadataReply{} })
	register("GetFileMetadataByIndex", cmdExtended, extGetFileMetadataByIndex, true, func() Reply { return &FileMetadataByIndexReply{} })
	register("SetFileMetadata", cmdExtended, extSetFileMetadata, true, func() Reply { return &SetFileMetadataReply{} })
	register("DeleteFile", cmdExtended, extDeleteFile, true, func() Reply { return &DeleteFileReply{} })
	register("GetDirectoryCount", cmdExtended, extGetDirectoryCount, true, func() Reply { return &GetDirectoryCountReply{} })
	register("ExecuteFile", cmdExtended, extExecuteFile, true, func() Reply { return &ExecuteFileReply{} })
}

// GetFileMetadataByNameRequest looks up a file's size, address, CRC and
// linkage by vendor+name rather than by directory index.
type GetFileMetadataByNameRequest struct {
	Vendor  FileVendor
	Options uint8
	Name    string
}

func (GetFileMetadataByNameRequest) CommandID() byte       { return cmdExtended }
func (GetFileMetadataByNameRequest) Extended() (byte, bool) { return extGetFileMetadataByName, true }
func (GetFileMetadataByNameRequest) NewReply() Reply        { return &FileMetadataReply{} }

func (r GetFileMetadataByNameRequest) EncodePayload() ([]byte, error) {
	buf := []byte{byte(r.Vendor), r.Options}
	return codec.EncodeFixedString(buf, r.Name, FileNameCapacity)
}

// FileMetadataReply is the device's record for a single file.
type FileMetadataReply struct {
	Vendor     FileVendor
	Size       uint32
	Address    uint32
	CRC        uint32
	FileType   uint32
	Timestamp  int32
	Version    Version
	LinkedName string
}

func (r *FileMetadataReply) DecodePayload(data []byte) error {
	const fixed = 1 + 4 + 4 + 4 + 4 + 4 + 4
	if len(data) < fixed {
		return codec.ErrUnexpectedEnd
	}
	r.Vendor = FileVendor(data[0])
	r.Size = getU32LE(data[1:5])
	r.Address = getU32LE(data[5:9])
	r.CRC = getU32LE(data[9:13])
	r.FileType = getU32LE(data[13:17])
	r.Timestamp = int32(getU32LE(data[17:21]))
	r.Version = Version{data[21], data[22], data[23], data[24]}
	name, _, err := codec.DecodeFixedString(data[fixed:], FileNameCapacity)
	if err != nil {
		return err
	}
	r.LinkedName = name
	return nil
}

// GetFileMetadataByIndexRequest walks the file directory in index
// order, starting at 0.
type GetFileMetadataByIndexRequest struct {
	Index   uint8
	Options uint8
}

func (GetFileMetadataByIndexRequest) CommandID() byte       { return cmdExtended }
func (GetFileMetadataByIndexRequest) Extended() (byte, bool) { return extGetFileMetadataByIndex, true }
func (GetFileMetadataByIndexRequest) NewReply() Reply        { return &FileMetadataByIndexReply{} }

func (r GetFileMetadataByIndexRequest) EncodePayload() ([]byte, error) {
	return []byte{r.Index, r.Options}, nil
}

// FileMetadataByIndexReply additionally carries the file's own name,
// since an index-based lookup doesn't start from one.
type FileMetadataByIndexReply struct {
	FileMetadataReply
	Name string
}

func (r *FileMetadataByIndexReply) DecodePayload(data []byte) error {
	if err := r.FileMetadataReply.DecodePayload(data); err != nil {
		return err
	}
	const fixed = 1 + 4 + 4 + 4 + 4 + 4 + 4
	rest := data[fixed+FileNameCapacity+1:]
	name, _, err := codec.DecodeFixedString(rest, FileNameCapacity)
	if err != nil {
		return err
	}
	r.Name = name
	return nil
}

// SetFileMetadataRequest rewrites a file's stored load address,
// timestamp and version after it has been uploaded.
type SetFileMetadataRequest struct {
	Vendor     FileVendor
	Options    uint8
	Address    uint32
	Timestamp  int32
	Version    Version
	Name       string
}

func (SetFileMetadataRequest) CommandID() byte       { return cmdExtended }
func (SetFileMetadataRequest) Extended() (byte, bool) { return extSetFileMetadata, true }
func (SetFileMetadataRequest) NewReply() Reply        { return &SetFileMetadataReply{} }

func (r SetFileMetadataRequest) EncodePayload() ([]byte, error) {
	buf := []byte{byte(r.Vendor), r.Options}
	buf = putU32LE(buf, r.Address)
	buf = putU32LE(buf, uint32(r.Timestamp))
	buf = append(buf, r.Version.Major, r.Version.Minor, r.Version.Build, r.Version.Beta)
	return codec.EncodeFixedString(buf, r.Name, FileNameCapacity)
}

// SetFileMetadataReply carries no fields beyond the ack.
type SetFileMetadataReply struct{}

func (r *SetFileMetadataReply) DecodePayload(data []byte) error { return nil }

// DeleteFileRequest removes a file from the device's directory.
type DeleteFileRequest struct {
	Vendor  FileVendor
	Options uint8
	Name    string
}

func (DeleteFileRequest) CommandID() byte       { return cmdExtended }
func (DeleteFileRequest) Extended() (byte, bool) { return extDeleteFile, true }
func (DeleteFileRequest) NewReply() Reply        { return &DeleteFileReply{} }

func (r DeleteFileRequest) EncodePayload() ([]byte, error) {
	buf := []byte{byte(r.Vendor), r.Options}
	return codec.EncodeFixedString(buf, r.Name, FileNameCapacity)
}

// DeleteFileReply carries no fields beyond the ack.
type DeleteFileReply struct{}

func (r *DeleteFileReply) DecodePayload(data []byte) error { return nil }

// GetDirectoryCountRequest asks how many files a vendor namespace
// holds, for iterating GetFileMetadataByIndex.
type GetDirectoryCountRequest struct {
	Vendor  FileVendor
	Options uint8
}

func (GetDirectoryCountRequest) CommandID() byte       { return cmdExtended }
func (GetDirectoryCountRequest) Extended() (byte, bool) { return extGetDirectoryCount, true }
func (GetDirectoryCountRequest) NewReply() Reply        { return &GetDirectoryCountReply{} }

func (r GetDirectoryCountRequest) EncodePayload() ([]byte, error) {
	return []byte{byte(r.Vendor), r.Options}, nil
}

// GetDirectoryCountReply reports the file count as a signed 16-bit
// value, matching the device's own (oddly signed) wire type.
type GetDirectoryCountReply struct {
	Count int16
}

func (r *GetDirectoryCountReply) DecodePayload(data []byte) error {
	if len(data) < 2 {
		return codec.ErrUnexpectedEnd
	}
	r.Count = int16(getU16LE(data[0:2]))
	return nil
}

// ExecuteFileRequest runs (or stops) a program already on the device
// without going through a fresh upload.
type ExecuteFileRequest struct {
	Vendor  FileVendor
	Options uint8
	Name    string
}

func (ExecuteFileRequest) CommandID() byte       { return cmdExtended }
func (ExecuteFileRequest) Extended() (byte, bool) { return extExecuteFile, true }
func (ExecuteFileRequest) NewReply() Reply        { return &ExecuteFileReply{} }

func (r ExecuteFileRequest) EncodePayload() ([]byte, error) {
	buf := []byte{byte(r.Vendor), r.Options}
	return codec.EncodeFixedString(buf, r.Name, FileNameCapacity)
}

// ExecuteFileReply carries no fields beyond the ack.
type ExecuteFileReply struct{}

func (r *ExecuteFileReply) DecodePayload(data []byte) error { return nil }

// Package filexfer drives the file-transfer state machine: init, an
// optional link, a run of read or write chunks, then exit. It is the
// only layer that knows how window size turns into a chunk size, how
// upload CRC32s are computed, and how progress is reported; everything
// else is built from pkg/transport exchanges.
package filexfer

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/brainlink/v5serial/internal/crc"
	"github.com/brainlink/v5serial/pkg/codec"
	"github.com/brainlink/v5serial/pkg/proto"
	"github.com/brainlink/v5serial/pkg/transport"
)

// UserProgramChunkSize is the practical chunk ceiling: the device never
// advertises a window larger than this, but a misbehaving one is still
// clamped against it.
const UserProgramChunkSize = 4096

// replyTimeout bounds an ordinary Init/Read/Write/Link round trip.
const replyTimeout = 500 * time.Millisecond

// exitTimeout is the extended wait Exit gets, since the device may act
// on RunProgram/Halt/ShowRunScreen before it replies.
const exitTimeout = 1 * time.Second

// Progress reports transfer completion as a percentage in [0, 100].
// It is called synchronously at chunk boundaries and must not re-enter
// the connection.
type Progress func(percent float64)

func noopProgress(float64) {}

// DownloadRequest names the file to read off the device.
type DownloadRequest struct {
	Vendor       proto.FileVendor
	Target       proto.FileTarget
	Name         string
	Extension    string
	// ExpectedSize is the maximum size the host is willing to accept;
	// some device firmwares want this set, others tolerate 0 — callers
	// decide.
	ExpectedSize uint32
	LoadAddress  uint32
	Clock        codec.Clock
}

// UploadRequest names the file to write and the bytes to send.
type UploadRequest struct {
	Vendor      proto.FileVendor
	Target      proto.FileTarget
	Name        string
	Extension   string
	LoadAddress uint32
	Data        []byte
	// LinkName, if non-empty, names a companion file already on the
	// device this upload should be linked against (hot/cold pairing).
	LinkName    string
	AfterUpload proto.ExitAction
	Version     proto.Version
	Clock       codec.Clock
}

func clockOf(c codec.Clock) codec.Clock {
	if c == nil {
		return codec.SystemClock{}
	}
	return c
}

// Download runs the init/read*/exit sequence and returns the file's
// complete bytes.
func Download(conn *transport.Connection, req DownloadRequest, progress Progress) ([]byte, error) {
	if progress == nil {
		progress = noopProgress
	}

	initReq := proto.InitFileTransferRequest{
		Operation:     proto.InitActionRead,
		Target:        req.Target,
		Vendor:        req.Vendor,
		Option:        proto.InitOptionNone,
		WriteFileSize: req.ExpectedSize,
		LoadAddress:   req.LoadAddress,
		WriteFileCRC:  0,
		FileExtension: req.Extension,
		Timestamp:     codec.J2000Timestamp(clockOf(req.Clock)),
		FileName:      req.Name,
	}
	var initReply proto.InitFileTransferReply
	if err := conn.Handshake(initReq, &initReply, replyTimeout, 2); err != nil {
		return nil, fmt.Errorf("filexfer: init read transfer: %w", err)
	}

	chunk := chunkSize(uint16(initReply.WindowSize))
	fileSize := initReply.FileSize
	out := make([]byte, 0, fileSize)

	for offset := uint32(0); fileSize == 0 || uint32(len(out)) < fileSize; offset += uint32(chunk) {
		readReq := proto.ReadFileRequest{Address: req.LoadAddress + offset, Size: uint16(chunk)}
		var readReply proto.ReadFileReply
		if err := readWithRetry(conn, readReq, &readReply); err != nil {
			return nil, fmt.Errorf("filexfer: read chunk at offset %d: %w", offset, err)
		}
		out = append(out, readReply.Data...)
		if fileSize > 0 {
			progress(float64(len(out)) / float64(fileSize) * 100)
		}
		if len(readReply.Data) < chunk {
			break
		}
	}

	if err := exitSession(conn, proto.ExitDoNothing); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload runs the init/(link)/write*/exit sequence. The file's CRC32
// is computed here and carried in the Init request so the device can
// verify it received the data intact.
func Upload(conn *transport.Connection, req UploadRequest, progress Progress) error {
	if progress == nil {
		progress = noopProgress
	}

	fileCRC := crc.ComputeCRC32(req.Data)
	initReq := proto.InitFileTransferRequest{
		Operation:     proto.InitActionWrite,
		Target:        req.Target,
		Vendor:        req.Vendor,
		Option:        proto.InitOptionOverwrite,
		WriteFileSize: uint32(len(req.Data)),
		LoadAddress:   req.LoadAddress,
		WriteFileCRC:  uint32(fileCRC),
		FileExtension: req.Extension,
		Timestamp:     codec.J2000Timestamp(clockOf(req.Clock)),
		Version:       req.Version,
		FileName:      req.Name,
	}
	var initReply proto.InitFileTransferReply
	if err := conn.Handshake(initReq, &initReply, replyTimeout, 2); err != nil {
		return fmt.Errorf("filexfer: init write transfer: %w", err)
	}

	if req.LinkName != "" {
		linkReq := proto.LinkFileRequest{Vendor: req.Vendor, Option: 0, RequiredFile: req.LinkName}
		var linkReply proto.LinkFileReply
		if err := conn.Handshake(linkReq, &linkReply, replyTimeout, 2); err != nil {
			return fmt.Errorf("filexfer: link file: %w", err)
		}
	}

	chunk := roundUp4(chunkSize(uint16(initReply.WindowSize)))
	data := req.Data
	for offset := 0; offset < len(data); offset += chunk {
		end := offset + chunk
		if end > len(data) {
			end = len(data)
		}
		progress(float64(offset) / float64(len(data)) * 100)

		writeReq := proto.WriteFileRequest{
			Address: req.LoadAddress + uint32(offset),
			Data:    data[offset:end],
		}
		var writeReply proto.WriteFileReply
		if err := writeWithRetry(conn, writeReq, &writeReply); err != nil {
			return fmt.Errorf("filexfer: write chunk at offset %d: %w", offset, err)
		}
	}
	progress(100)

	return exitSession(conn, req.AfterUpload)
}

// exitSession closes the open session, giving the device extra time to
// act on RunProgram/Halt/ShowRunScreen before it replies.
func exitSession(conn *transport.Connection, action proto.ExitAction) error {
	exitReq := proto.ExitFileTransferRequest{Action: action}
	var exitReply proto.ExitFileTransferReply
	if err := conn.Handshake(exitReq, &exitReply, exitTimeout, 1); err != nil {
		return fmt.Errorf("filexfer: exit transfer: %w", err)
	}
	return nil
}

// readWithRetry and writeWithRetry retry a chunk timeout once before
// giving up, distinct from Handshake's own retry budget, which governs
// transient framing errors rather than chunk-level timeouts
// specifically. One extra attempt on top of Handshake's own is
// sufficient.
func readWithRetry(conn *transport.Connection, req proto.ReadFileRequest, reply *proto.ReadFileReply) error {
	return conn.Handshake(req, reply, replyTimeout, 1)
}

func writeWithRetry(conn *transport.Connection, req proto.WriteFileRequest, reply *proto.WriteFileReply) error {
	return conn.Handshake(req, reply, replyTimeout, 1)
}

// chunkSize clamps a device-advertised window size into [1,
// UserProgramChunkSize], treating 0 (no preference) as the ceiling.
func chunkSize(windowSize uint16) int {
	if windowSize == 0 {
		return UserProgramChunkSize
	}
	size := int(windowSize)
	if size > UserProgramChunkSize {
		return UserProgramChunkSize
	}
	return size
}

// roundUp4 rounds n up to the next multiple of 4, matching the upload
// path's strict chunk alignment requirement.
func roundUp4(n int) int {
	if rem := n % 4; rem != 0 {
		return n + (4 - rem)
	}
	return n
}

// DeleteFile removes a file from the device. PROS implicitly opens a
// file-transfer session as a side effect of delete, so the host closes
// it with ExitFileTransfer{DoNothing} afterward even though it never
// called Init itself. The exit's own reply error is logged rather than
// surfaced, since the session was never one the caller opened; every
// other exchange in this package surfaces its reply error normally
// (see DESIGN.md).
func DeleteFile(conn *transport.Connection, vendor proto.FileVendor, name string, eraseAll bool) error {
	options := uint8(0)
	if eraseAll {
		options = 0x80
	}
	req := proto.DeleteFileRequest{Vendor: vendor, Options: options, Name: name}
	var reply proto.DeleteFileReply
	if err := conn.Handshake(req, &reply, replyTimeout, 2); err != nil {
		return fmt.Errorf("filexfer: delete file: %w", err)
	}
	if err := exitSession(conn, proto.ExitDoNothing); err != nil {
		log.WithField("component", "filexfer").Warnf("delete file: implicit session close: %v", err)
	}
	return nil
}

// Package program implements the compound commands layered on top of
// the file-transfer workflow: "upload program" (INI + cold + optional
// hot) and controller channel switching.
package program

import (
	"bytes"
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/brainlink/v5serial/pkg/codec"
	"github.com/brainlink/v5serial/pkg/filexfer"
	"github.com/brainlink/v5serial/pkg/proto"
	"github.com/brainlink/v5serial/pkg/transport"
)

// Special load addresses.
const (
	ColdStart = 0x03800000
	HotStart  = 0x07800000
)

// DataSelection names which binary region(s) an upload carries.
type DataSelection int

const (
	DataCold DataSelection = iota
	DataHot
	DataBoth
)

// UploadProgramRequest describes a complete "slot" program upload.
// ColdBin and HotBin hold the binaries for the regions DataSelection
// selects; IDE is written into the INI's [project] "ide" key and
// IconAlt defaults to Icon when left empty, since VEX's own tooling
// always writes the two keys in lockstep when a single icon is given.
type UploadProgramRequest struct {
	Name        string
	Description string
	Icon        string
	IconAlt     string
	IDE         string
	Slot        int
	Data        DataSelection
	ColdBin     []byte
	HotBin      []byte
	AfterUpload proto.ExitAction
	Version     proto.Version
	Clock       codec.Clock
}

// UploadProgram runs the fixed three-step sequence: INI, then cold (if
// present), then hot (if present, linked against the cold library
// companion). Each step must succeed before the next begins.
func UploadProgram(conn *transport.Connection, req UploadProgramRequest, progress filexfer.Progress) error {
	base := fmt.Sprintf("slot%d", req.Slot+1)

	iniBytes, err := buildINI(req)
	if err != nil {
		return fmt.Errorf("program: build ini: %w", err)
	}

	if err := filexfer.Upload(conn, filexfer.UploadRequest{
		Vendor:      proto.VendorUser,
		Target:      proto.TargetDDR,
		Name:        base + ".ini",
		Extension:   "ini",
		LoadAddress: ColdStart,
		Data:        iniBytes,
		AfterUpload: proto.ExitDoNothing,
		Version:     req.Version,
		Clock:       req.Clock,
	}, progress); err != nil {
		return fmt.Errorf("program: upload ini: %w", err)
	}

	hasCold := req.Data == DataCold || req.Data == DataBoth
	hasHot := req.Data == DataHot || req.Data == DataBoth

	if hasCold {
		after := req.AfterUpload
		if hasHot {
			after = proto.ExitDoNothing
		}
		if err := filexfer.Upload(conn, filexfer.UploadRequest{
			Vendor:      proto.VendorUser,
			Target:      proto.TargetDDR,
			Name:        base + ".bin",
			Extension:   "bin",
			LoadAddress: ColdStart,
			Data:        req.ColdBin,
			AfterUpload: after,
			Version:     req.Version,
			Clock:       req.Clock,
		}, progress); err != nil {
			return fmt.Errorf("program: upload cold: %w", err)
		}
	}

	if hasHot {
		if err := filexfer.Upload(conn, filexfer.UploadRequest{
			Vendor:      proto.VendorUser,
			Target:      proto.TargetDDR,
			Name:        base + ".bin",
			Extension:   "bin",
			LoadAddress: HotStart,
			Data:        req.HotBin,
			LinkName:    base + "_lib.bin",
			AfterUpload: req.AfterUpload,
			Version:     req.Version,
			Clock:       req.Clock,
		}, progress); err != nil {
			return fmt.Errorf("program: upload hot: %w", err)
		}
	}

	return nil
}

// buildINI serializes the program's metadata as a key-value file with
// sections [project] (key "ide") and [program] (keys name, slot, icon,
// iconalt, description), matching the schema VEX's own tooling writes
// alongside every uploaded slot.
func buildINI(req UploadProgramRequest) ([]byte, error) {
	iconAlt := req.IconAlt
	if iconAlt == "" {
		iconAlt = req.Icon
	}

	file := ini.Empty()
	project, err := file.NewSection("project")
	if err != nil {
		return nil, err
	}
	if _, err := project.NewKey("ide", req.IDE); err != nil {
		return nil, err
	}

	prog, err := file.NewSection("program")
	if err != nil {
		return nil, err
	}
	// Keys and order match the on-device [program] schema exactly.
	keys := []struct{ name, value string }{
		{"name", req.Name},
		{"slot", fmt.Sprintf("%d", req.Slot)},
		{"icon", req.Icon},
		{"iconalt", iconAlt},
		{"description", req.Description},
	}
	for _, k := range keys {
		if _, err := prog.NewKey(k.name, k.value); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Command v5serial is a small CLI front end over the driver library:
// connect to a discovered brain or controller, run one subcommand,
// report the result. There is no daemon loop or background state
// machine here: the protocol is a linear request/reply exchange, so
// connect -> run command -> report is the whole shape.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/brainlink/v5serial/pkg/codec"
	"github.com/brainlink/v5serial/pkg/discovery"
	"github.com/brainlink/v5serial/pkg/filexfer"
	"github.com/brainlink/v5serial/pkg/program"
	"github.com/brainlink/v5serial/pkg/proto"
	"github.com/brainlink/v5serial/pkg/transport"
)

func main() {
	log.SetLevel(log.InfoLevel)

	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "ls":
		err = runList()
	case "version":
		err = runVersion(args[1:])
	case "download":
		err = runDownload(args[1:])
	case "upload":
		err = runUpload(args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "v5serial:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: v5serial [-v] <ls|version|download|upload> [args]")
	flag.PrintDefaults()
}

func runList() error {
	devices, err := discovery.Discover()
	if err != nil {
		return err
	}
	for _, d := range devices {
		fmt.Printf("%s\tsystem=%s\tuser=%s\n", d.Kind, d.SystemPort, d.UserPort)
	}
	return nil
}

func connectFirstBrain() (*transport.Connection, error) {
	devices, err := discovery.Discover()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Kind != discovery.KindBrain {
			continue
		}
		pipe, err := discovery.OpenSystemPort(d)
		if err != nil {
			return nil, err
		}
		return transport.NewConnection(pipe), nil
	}
	return nil, fmt.Errorf("no brain found")
}

func runVersion(args []string) error {
	conn, err := connectFirstBrain()
	if err != nil {
		return err
	}
	defer conn.Close()

	var reply proto.GetSystemVersionReply
	if err := conn.Handshake(proto.GetSystemVersionRequest{}, &reply, time.Second, 2); err != nil {
		return err
	}
	fmt.Printf("product=%s version=%d.%d.%d.%d\n",
		reply.Product, reply.SystemVersion[0], reply.SystemVersion[1], reply.SystemVersion[2], reply.SystemVersion[3])
	return nil
}

func runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	name := fs.String("name", "", "file name on the device")
	ext := fs.String("ext", "bin", "file extension")
	out := fs.String("out", "", "output path")
	addr := fs.Uint("addr", 0x03800000, "load address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *out == "" {
		return fmt.Errorf("download requires -name and -out")
	}

	conn, err := connectFirstBrain()
	if err != nil {
		return err
	}
	defer conn.Close()

	data, err := filexfer.Download(conn, filexfer.DownloadRequest{
		Vendor:      proto.VendorUser,
		Name:        *name,
		Extension:   *ext,
		LoadAddress: uint32(*addr),
	}, func(pct float64) {
		log.Debugf("download %.0f%%", pct)
	})
	if err != nil {
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	name := fs.String("name", "", "program name")
	desc := fs.String("desc", "", "program description")
	icon := fs.String("icon", "", "program icon")
	slot := fs.Int("slot", 0, "slot index (0-based)")
	coldPath := fs.String("cold", "", "cold binary path")
	hotPath := fs.String("hot", "", "hot binary path")
	run := fs.Bool("run", false, "run the program after upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *coldPath == "" {
		return fmt.Errorf("upload requires -name and -cold")
	}

	coldBin, err := os.ReadFile(*coldPath)
	if err != nil {
		return err
	}
	data := program.DataCold
	var hotBin []byte
	if *hotPath != "" {
		hotBin, err = os.ReadFile(*hotPath)
		if err != nil {
			return err
		}
		data = program.DataBoth
	}

	after := proto.ExitDoNothing
	if *run {
		after = proto.ExitRunProgram
	}

	conn, err := connectFirstBrain()
	if err != nil {
		return err
	}
	defer conn.Close()

	req := program.UploadProgramRequest{
		Name:        *name,
		Description: *desc,
		Icon:        *icon,
		IDE:         "vexcode",
		Slot:        *slot,
		Data:        data,
		ColdBin:     coldBin,
		HotBin:      hotBin,
		AfterUpload: after,
		Clock:       codec.SystemClock{},
	}
	return program.UploadProgram(conn, req, func(pct float64) {
		log.Debugf("upload %.0f%%", pct)
	})
}

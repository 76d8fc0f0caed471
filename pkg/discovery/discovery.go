// Package discovery enumerates USB serial ports, filters to the ones
// carrying VEX's vendor ID, and pairs a brain's system and user ports
// into one candidate device. It sits at the boundary of the protocol
// core: everything above it just needs a transport.Pipe, and this
// package is what finds one on a real machine (go.bug.st/serial).
package discovery

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/brainlink/v5serial/pkg/transport"
)

// VexUSBVID, VexBrainUSBPID and VexControllerUSBPID are the USB
// identifiers VEX documents for the V5 platform. Confirm against
// hardware before shipping — see DESIGN.md.
const (
	VexUSBVID           = "2888"
	VexBrainUSBPID      = "0501"
	VexControllerUSBPID = "0503"
)

// DefaultBaudRate is the serial baud rate the V5 brain and controller
// negotiate their USB-CDC link at.
const DefaultBaudRate = 115200

// Kind classifies a discovered device.
type Kind int

const (
	KindUnknown Kind = iota
	KindBrain
	KindController
)

func (k Kind) String() string {
	switch k {
	case KindBrain:
		return "Brain"
	case KindController:
		return "Controller"
	default:
		return "Unknown"
	}
}

// PortInfo is the subset of a USB serial port's descriptor Classify
// needs. It exists so the pairing algorithm can be tested without a
// real USB stack.
type PortInfo struct {
	Name    string
	IsUSB   bool
	VID     string
	PID     string
	Product string
}

// Device is one candidate transport: a brain's paired system+user
// ports, a controller's single port, or an unpaired "System" port the
// pairing rule couldn't match (Unknown).
type Device struct {
	Kind       Kind
	SystemPort string
	UserPort   string // empty unless Kind == KindBrain
}

type portRole int

const (
	roleIgnore portRole = iota
	roleSystem
	roleUser
	roleController
)

// roleOf classifies a single port. The brain's two ports are
// distinguished first by product-name substring ("User"/
// "Communications", matching PROS's own naming); when that's absent,
// it falls back to "System unless the immediately preceding port in
// enumeration order was also classified System".
func roleOf(p PortInfo, prevWasSystem bool) portRole {
	if !p.IsUSB || !strings.EqualFold(p.VID, VexUSBVID) {
		return roleIgnore
	}
	switch {
	case strings.EqualFold(p.PID, VexControllerUSBPID):
		return roleController
	case strings.EqualFold(p.PID, VexBrainUSBPID):
		switch {
		case strings.Contains(p.Product, "User"):
			return roleUser
		case strings.Contains(p.Product, "Communications"):
			return roleSystem
		case prevWasSystem:
			return roleUser
		default:
			return roleSystem
		}
	default:
		return roleIgnore
	}
}

// Classify pairs ports into devices: a User port immediately following
// a System port belongs to the same brain; a lone System is Unknown; a
// User without a matching System is discarded.
func Classify(ports []PortInfo) []Device {
	roles := make([]portRole, len(ports))
	prevSystem := false
	for i, p := range ports {
		roles[i] = roleOf(p, prevSystem)
		prevSystem = roles[i] == roleSystem
	}

	var devices []Device
	for i := 0; i < len(ports); i++ {
		switch roles[i] {
		case roleSystem:
			if i+1 < len(ports) && roles[i+1] == roleUser {
				devices = append(devices, Device{Kind: KindBrain, SystemPort: ports[i].Name, UserPort: ports[i+1].Name})
				i++
			} else {
				devices = append(devices, Device{Kind: KindUnknown, SystemPort: ports[i].Name})
			}
		case roleController:
			devices = append(devices, Device{Kind: KindController, SystemPort: ports[i].Name})
		case roleUser, roleIgnore:
			// A lone User (no preceding System) is discarded; Ignore
			// never becomes a device.
		}
	}
	return devices
}

// Discover enumerates the host's USB serial ports and returns the
// candidate VEX devices among them.
func Discover() ([]Device, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("discovery: list serial ports: %w", err)
	}
	ports := make([]PortInfo, len(details))
	for i, d := range details {
		ports[i] = PortInfo{
			Name:    d.Name,
			IsUSB:   d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Product: d.Product,
		}
	}
	return Classify(ports), nil
}

// OpenSystemPort opens dev's system (or controller) port as a
// transport.Pipe ready to wrap in transport.NewConnection.
func OpenSystemPort(dev Device) (transport.Pipe, error) {
	return openPort(dev.SystemPort)
}

// OpenUserPort opens dev's direct user-I/O port. It is an error to
// call this on a non-Brain device or one without a paired user port.
func OpenUserPort(dev Device) (transport.Pipe, error) {
	if dev.Kind != KindBrain || dev.UserPort == "" {
		return nil, fmt.Errorf("discovery: device %q has no user port", dev.SystemPort)
	}
	return openPort(dev.UserPort)
}

func openPort(name string) (transport.Pipe, error) {
	mode := &serial.Mode{BaudRate: DefaultBaudRate}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("discovery: open %q: %w", name, err)
	}
	return timeoutPipe{port}, nil
}

// timeoutPipe adapts go.bug.st/serial.Port's SetReadTimeout (which
// takes a time.Duration already) to transport.Pipe verbatim; kept as
// a named type so future transports (e.g. a TCP bridge without a
// native read deadline) can implement the same seam.
type timeoutPipe struct {
	serial.Port
}

func (p timeoutPipe) SetReadTimeout(d time.Duration) error {
	return p.Port.SetReadTimeout(d)
}


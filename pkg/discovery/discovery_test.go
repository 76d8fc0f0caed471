package discovery

import "testing"

func TestClassifyPairsBrainPorts(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2888", PID: "0501", Product: "V5 Brain Communications Port"},
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "2888", PID: "0501", Product: "V5 Brain User Port"},
	}
	devices := Classify(ports)
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want 1", len(devices))
	}
	d := devices[0]
	if d.Kind != KindBrain || d.SystemPort != ports[0].Name || d.UserPort != ports[1].Name {
		t.Fatalf("got %+v", d)
	}
}

func TestClassifyLoneSystemIsUnknown(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2888", PID: "0501", Product: "V5 Brain Communications Port"},
	}
	devices := Classify(ports)
	if len(devices) != 1 || devices[0].Kind != KindUnknown {
		t.Fatalf("got %+v", devices)
	}
}

func TestClassifyDiscardsOrphanUserPort(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "2888", PID: "0501", Product: "V5 Brain User Port"},
	}
	devices := Classify(ports)
	if len(devices) != 0 {
		t.Fatalf("got %+v, want no devices", devices)
	}
}

func TestClassifyController(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyACM2", IsUSB: true, VID: "2888", PID: "0503", Product: "V5 Controller"},
	}
	devices := Classify(ports)
	if len(devices) != 1 || devices[0].Kind != KindController {
		t.Fatalf("got %+v", devices)
	}
}

func TestClassifyFallsBackToEnumerationOrderWithoutNameHints(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2888", PID: "0501"},
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "2888", PID: "0501"},
	}
	devices := Classify(ports)
	if len(devices) != 1 || devices[0].Kind != KindBrain {
		t.Fatalf("got %+v", devices)
	}
}

func TestClassifyIgnoresNonVexPorts(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", Product: "FTDI"},
	}
	if devices := Classify(ports); len(devices) != 0 {
		t.Fatalf("got %+v, want no devices", devices)
	}
}

package fifo

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	f := New(8)
	n := f.Write([]byte("hello"))
	if n != 5 {
		t.Fatalf("Write returned %d, want 5", n)
	}
	if f.Occupied() != 5 {
		t.Fatalf("Occupied() = %d, want 5", f.Occupied())
	}
	buf := make([]byte, 5)
	n = f.Read(buf)
	if n != 5 || string(buf) != "hello" {
		t.Fatalf("Read() = %q (%d), want %q", buf, n, "hello")
	}
	if f.Occupied() != 0 {
		t.Fatalf("Occupied() after drain = %d, want 0", f.Occupied())
	}
}

func TestWriteFullStopsAtCapacity(t *testing.T) {
	f := New(4) // usable capacity is size-1
	n := f.Write([]byte("abcdef"))
	if n != 3 {
		t.Fatalf("Write() = %d, want 3", n)
	}
}

func TestDiscard(t *testing.T) {
	f := New(8)
	f.Write([]byte("garbage!"))
	dropped := f.Discard(4)
	if dropped != 4 {
		t.Fatalf("Discard() = %d, want 4", dropped)
	}
	if f.Occupied() != 3 {
		t.Fatalf("Occupied() after discard = %d, want 3", f.Occupied())
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	f := New(8)
	f.Write([]byte("xy"))
	buf := make([]byte, 1)
	n := f.Peek(buf, 1)
	if n != 1 || buf[0] != 'y' {
		t.Fatalf("Peek() = %q (%d), want 'y'", buf, n)
	}
	if f.Occupied() != 2 {
		t.Fatalf("Occupied() after peek = %d, want 2", f.Occupied())
	}
}

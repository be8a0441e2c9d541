//go:build linux

package i2c

import (
	"os"
	"strings"
	"testing"
)

func openNullBus(t *testing.T) *Bus {
	t.Helper()
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return &Bus{f: f, path: "/dev/null"}
}

func TestDevTransfer_InvalidAddr(t *testing.T) {
	b := openNullBus(t)
	for _, addr := range []uint16{0, 0x80} {
		err := b.Dev(addr).ReadReg(0xFF, make([]byte, 1))
		if err == nil || !strings.Contains(err.Error(), "invalid address") {
			t.Fatalf("addr=0x%X err=%v want invalid address", addr, err)
		}
	}
}

func TestDevTransfer_EmptyIsNoop(t *testing.T) {
	b := openNullBus(t)
	if err := b.Dev(0x42).Read(nil); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestDevTransfer_ClosedBus(t *testing.T) {
	b := openNullBus(t)
	d := b.Dev(0x42)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Read(make([]byte, 1)); err == nil {
		t.Fatalf("expected error on closed bus")
	}
}

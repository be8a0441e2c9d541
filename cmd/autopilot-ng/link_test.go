package main

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autopilot-ng/internal/config"
	"autopilot-ng/internal/metrics"
	"autopilot-ng/internal/stream"
)

func TestOpenLink_UnknownTransport(t *testing.T) {
	_, _, err := openLink(context.Background(), config.MAVLinkConfig{Transport: "can"})
	if err == nil || !strings.Contains(err.Error(), "can") {
		t.Fatalf("err=%v want unknown transport", err)
	}
}

func TestOpenLink_TCPCarriesBytes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Grab a free port, then hand it to the link.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	addr := probe.Addr().String()
	_ = probe.Close()

	port, closeLink, err := openLink(ctx, config.MAVLinkConfig{Transport: "tcp", TCPListen: addr})
	if err != nil {
		t.Fatalf("openLink() error: %v", err)
	}
	defer closeLink()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{0xFD, 0x09}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for port.Available() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("bytes not received, available=%d", port.Available())
		}
		time.Sleep(time.Millisecond)
	}

	if n := port.Write(0x55); n != 1 {
		t.Fatalf("Write()=%d want 1", n)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var b [1]byte
	if _, err := conn.Read(b[:]); err != nil || b[0] != 0x55 {
		t.Fatalf("Read()=%x err=%v want 55", b[0], err)
	}
	if _, ok := port.(*stream.Pipe); !ok {
		t.Fatalf("tcp link is %T want *stream.Pipe", port)
	}
}

func TestMetricsMux(t *testing.T) {
	mux := metricsMux(metrics.New())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 200 || rec.Body.String() != "OK" {
		t.Fatalf("health code=%d body=%q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "autopilot_mavlink_frames_sent_total") {
		t.Fatalf("metrics code=%d", rec.Code)
	}
}

package gps

import (
	"context"
	"io"
	"net"
	"strings"
	"time"

	"autopilot-ng/internal/stream"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// gpsdWatchNMEA asks gpsd to relay the receiver's raw NMEA sentences, which
// then go through the same byte parser as a directly attached receiver.
var gpsdWatchNMEA = []byte("?WATCH={\"enable\":true,\"nmea\":true}\n")

// dialGPSD returns a DialFunc connecting to gpsd over TCP.
func dialGPSD(addr string) stream.DialFunc {
	if strings.TrimSpace(addr) == "" {
		addr = gpsdDefaultAddr
	}
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		d := &net.Dialer{Timeout: 2 * time.Second}
		return d.DialContext(ctx, "tcp", addr)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net"

	"autopilot-ng/internal/config"
	"autopilot-ng/internal/serial"
	"autopilot-ng/internal/stream"
	"autopilot-ng/internal/udp"
)

// Buffer sizes for stream transports. A few full frames each way.
const (
	linkRxBuffer = 2048
	linkTxBuffer = 2048
)

// openLink attaches the configured MAVLink transport and returns it as a
// polled port. The returned func releases it.
func openLink(ctx context.Context, cfg config.MAVLinkConfig) (stream.Port, func(), error) {
	switch cfg.Transport {
	case "serial":
		f, err := serial.Open(cfg.Device, cfg.Baud)
		if err != nil {
			return nil, nil, err
		}
		pipe := stream.NewPipe(linkRxBuffer, linkTxBuffer)
		go func() {
			if err := pipe.Serve(ctx, f); err != nil && ctx.Err() == nil {
				log.Printf("mavlink serial stopped: %v", err)
			}
		}()
		log.Printf("mavlink serial device=%s baud=%d", cfg.Device, cfg.Baud)
		return pipe, func() { _ = f.Close() }, nil

	case "udp":
		link, err := udp.NewLink(cfg.UDPListen, cfg.UDPDest)
		if err != nil {
			return nil, nil, err
		}
		go func() {
			if err := link.Serve(ctx); err != nil && ctx.Err() == nil {
				log.Printf("mavlink udp stopped: %v", err)
			}
		}()
		log.Printf("mavlink udp listen=%s dest=%s", cfg.UDPListen, cfg.UDPDest)
		return link, func() { _ = link.Close() }, nil

	case "tcp":
		ln, err := net.Listen("tcp", cfg.TCPListen)
		if err != nil {
			return nil, nil, fmt.Errorf("listen tcp: %w", err)
		}
		pipe := stream.NewPipe(linkRxBuffer, linkTxBuffer)
		go func() {
			if err := pipe.ServeListener(ctx, ln); err != nil && ctx.Err() == nil {
				log.Printf("mavlink tcp stopped: %v", err)
			}
		}()
		log.Printf("mavlink tcp listen=%s", ln.Addr())
		return pipe, func() { _ = ln.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown mavlink transport %q", cfg.Transport)
	}
}

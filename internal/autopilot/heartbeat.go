package autopilot

import (
	"log"
	"time"

	"autopilot-ng/internal/clock"
	"autopilot-ng/internal/mavlink"
)

const DefaultHeartbeatInterval = time.Second

// Blinker is toggled on every heartbeat sent. *led.LED implements it.
type Blinker interface {
	Toggle() error
}

// HeartbeatComponent announces the vehicle on the link. A heartbeat that
// cannot be queued stays due and goes out on the first tick with a free
// bus buffer; the interval restarts from that send.
type HeartbeatComponent struct {
	systemID uint8
	timer    clock.Timer
	due      bool
	status   Blinker
	ledErr   bool

	gcsHeartbeats uint64
	lastGCS       uint8
}

// NewHeartbeat returns a heartbeat component. status may be nil.
func NewHeartbeat(systemID uint8, interval time.Duration, status Blinker) *HeartbeatComponent {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &HeartbeatComponent{systemID: systemID, timer: clock.NewTimer(interval), status: status}
}

// Recv counts heartbeats from ground stations.
func (h *HeartbeatComponent) Recv(f *mavlink.Frame) {
	if f.MsgID != mavlink.MsgIDHeartbeat {
		return
	}
	hb, err := mavlink.UnmarshalHeartbeat(f.Payload)
	if err != nil || hb.Type != mavlink.TypeGCS {
		return
	}
	h.gcsHeartbeats++
	h.lastGCS = f.SystemID
}

func (h *HeartbeatComponent) Loop(bus *mavlink.Bus, dt time.Duration) {
	if h.timer.Step(dt) > 0 {
		h.due = true
	}
	if !h.due || !bus.ReadyToSend() {
		return
	}

	msg := mavlink.Heartbeat{
		Type:         mavlink.TypeGeneric,
		Autopilot:    mavlink.AutopilotGeneric,
		BaseMode:     mavlink.ModeAutoDisarmed,
		SystemStatus: mavlink.StateActive,
	}
	h.due = !bus.Send(mavlink.NewFrame(h.systemID, mavlink.CompIDAutopilot1, msg))
	if h.due {
		return
	}
	h.timer.Reset()
	if h.status != nil {
		if err := h.status.Toggle(); err != nil && !h.ledErr {
			log.Printf("status led toggle failed: %v", err)
			h.ledErr = true
		}
	}
}

// Due reports whether a heartbeat is waiting for a free bus buffer.
func (h *HeartbeatComponent) Due() bool { return h.due }

// GCSHeartbeats returns the number of ground station heartbeats seen and
// the system id of the most recent one.
func (h *HeartbeatComponent) GCSHeartbeats() (uint64, uint8) {
	return h.gcsHeartbeats, h.lastGCS
}

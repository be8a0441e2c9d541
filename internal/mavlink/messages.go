package mavlink

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Message ids.
const (
	MsgIDHeartbeat         uint32 = 0
	MsgIDScaledPressure    uint32 = 29
	MsgIDGlobalPositionInt uint32 = 33
)

// Component ids.
const (
	CompIDAutopilot1 uint8 = 1
	CompIDGPS        uint8 = 220
)

// MAV_TYPE, MAV_AUTOPILOT, MAV_MODE and MAV_STATE values used by the
// autopilot. Only what is sent or checked is listed.
const (
	TypeGeneric      uint8 = 0
	TypeGCS          uint8 = 6
	AutopilotGeneric uint8 = 0
	AutopilotInvalid uint8 = 8

	ModeAutoDisarmed uint8 = 92

	StateActive uint8 = 4

	protocolVersion uint8 = 3
)

const (
	heartbeatLen         = 9
	scaledPressureLen    = 14
	globalPositionIntLen = 28
)

// Message is a typed payload that can be wrapped into a Frame.
type Message interface {
	MsgID() uint32
	// AppendPayload appends the wire encoding to dst.
	AppendPayload(dst []byte) []byte
}

// NewFrame wraps msg into a frame from the given system and component.
func NewFrame(systemID, componentID uint8, msg Message) *Frame {
	return &Frame{
		SystemID:    systemID,
		ComponentID: componentID,
		MsgID:       msg.MsgID(),
		Payload:     msg.AppendPayload(nil),
	}
}

// Heartbeat is HEARTBEAT (#0).
type Heartbeat struct {
	CustomMode     uint32
	Type           uint8
	Autopilot      uint8
	BaseMode       uint8
	SystemStatus   uint8
	MavlinkVersion uint8
}

func (Heartbeat) MsgID() uint32 { return MsgIDHeartbeat }

func (m Heartbeat) AppendPayload(dst []byte) []byte {
	v := m.MavlinkVersion
	if v == 0 {
		v = protocolVersion
	}
	dst = binary.LittleEndian.AppendUint32(dst, m.CustomMode)
	return append(dst, m.Type, m.Autopilot, m.BaseMode, m.SystemStatus, v)
}

// UnmarshalHeartbeat decodes a HEARTBEAT payload.
func UnmarshalHeartbeat(p []byte) (Heartbeat, error) {
	if len(p) < heartbeatLen {
		return Heartbeat{}, fmt.Errorf("mavlink: heartbeat payload %d bytes want %d", len(p), heartbeatLen)
	}
	return Heartbeat{
		CustomMode:     binary.LittleEndian.Uint32(p[0:4]),
		Type:           p[4],
		Autopilot:      p[5],
		BaseMode:       p[6],
		SystemStatus:   p[7],
		MavlinkVersion: p[8],
	}, nil
}

// GlobalPositionInt is GLOBAL_POSITION_INT (#33).
type GlobalPositionInt struct {
	TimeBootMs uint32
	// Lat and Lon are degrees * 1e7.
	Lat int32
	Lon int32
	// Alt is MSL altitude in mm; RelativeAlt is above home in mm.
	Alt         int32
	RelativeAlt int32
	// Vx, Vy, Vz are ground speed north, east and down in cm/s.
	Vx int16
	Vy int16
	Vz int16
	// Hdg is the heading in centidegrees, 0..35999; 65535 when unknown.
	Hdg uint16
}

func (GlobalPositionInt) MsgID() uint32 { return MsgIDGlobalPositionInt }

func (m GlobalPositionInt) AppendPayload(dst []byte) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, m.TimeBootMs)
	dst = le.AppendUint32(dst, uint32(m.Lat))
	dst = le.AppendUint32(dst, uint32(m.Lon))
	dst = le.AppendUint32(dst, uint32(m.Alt))
	dst = le.AppendUint32(dst, uint32(m.RelativeAlt))
	dst = le.AppendUint16(dst, uint16(m.Vx))
	dst = le.AppendUint16(dst, uint16(m.Vy))
	dst = le.AppendUint16(dst, uint16(m.Vz))
	return le.AppendUint16(dst, m.Hdg)
}

// UnmarshalGlobalPositionInt decodes a GLOBAL_POSITION_INT payload.
func UnmarshalGlobalPositionInt(p []byte) (GlobalPositionInt, error) {
	if len(p) < globalPositionIntLen {
		return GlobalPositionInt{}, fmt.Errorf("mavlink: global_position_int payload %d bytes want %d", len(p), globalPositionIntLen)
	}
	le := binary.LittleEndian
	return GlobalPositionInt{
		TimeBootMs:  le.Uint32(p[0:4]),
		Lat:         int32(le.Uint32(p[4:8])),
		Lon:         int32(le.Uint32(p[8:12])),
		Alt:         int32(le.Uint32(p[12:16])),
		RelativeAlt: int32(le.Uint32(p[16:20])),
		Vx:          int16(le.Uint16(p[20:22])),
		Vy:          int16(le.Uint16(p[22:24])),
		Vz:          int16(le.Uint16(p[24:26])),
		Hdg:         le.Uint16(p[26:28]),
	}, nil
}

// ScaledPressure is SCALED_PRESSURE (#29).
type ScaledPressure struct {
	TimeBootMs uint32
	// PressAbs and PressDiff are in hPa.
	PressAbs  float32
	PressDiff float32
	// Temperature is in centidegrees Celsius.
	Temperature int16
}

func (ScaledPressure) MsgID() uint32 { return MsgIDScaledPressure }

func (m ScaledPressure) AppendPayload(dst []byte) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, m.TimeBootMs)
	dst = le.AppendUint32(dst, math.Float32bits(m.PressAbs))
	dst = le.AppendUint32(dst, math.Float32bits(m.PressDiff))
	return le.AppendUint16(dst, uint16(m.Temperature))
}

func UnmarshalScaledPressure(p []byte) (ScaledPressure, error) {
	if len(p) < scaledPressureLen {
		return ScaledPressure{}, fmt.Errorf("mavlink: scaled_pressure payload %d bytes want %d", len(p), scaledPressureLen)
	}
	le := binary.LittleEndian
	return ScaledPressure{
		TimeBootMs:  le.Uint32(p[0:4]),
		PressAbs:    math.Float32frombits(le.Uint32(p[4:8])),
		PressDiff:   math.Float32frombits(le.Uint32(p[8:12])),
		Temperature: int16(le.Uint16(p[12:14])),
	}, nil
}

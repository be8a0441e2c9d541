package mavlink

import "autopilot-ng/internal/stream"

type bufferFlag uint8

const (
	bufferEmpty bufferFlag = iota
	bufferQueued
	bufferActive
)

// busBuffers is the number of frames that can be pending at once.
const busBuffers = 2

type frameBuffer struct {
	data        [MaxFrameLen]byte
	flag        bufferFlag
	writeOffset int
	size        int
	// queuedAt orders queued frames so they leave in send order.
	queuedAt uint64
}

// Bus queues encoded frames and streams them out a few bytes per tick.
// One buffer streams while the other may hold the next frame.
type Bus struct {
	buffers [busBuffers]frameBuffer
	seq     uint8

	// Version selects the framing for frames that leave it unset.
	Version uint8

	sent     uint64
	rejected uint64
	bytesOut uint64
}

func NewBus(version uint8) *Bus {
	return &Bus{Version: version}
}

// Send encodes f into a free buffer. It returns false when both buffers are
// occupied or f cannot be encoded; the caller retries on a later tick. The
// bus assigns the sequence number.
func (b *Bus) Send(f *Frame) bool {
	for i := range b.buffers {
		buf := &b.buffers[i]
		if buf.flag != bufferEmpty {
			continue
		}
		out := *f
		if out.Version == 0 {
			out.Version = b.Version
		}
		out.Seq = b.seq
		n, err := out.MarshalTo(buf.data[:])
		if err != nil {
			b.rejected++
			return false
		}
		b.seq++
		buf.size = n
		buf.writeOffset = 0
		buf.flag = bufferQueued
		b.sent++
		buf.queuedAt = b.sent
		return true
	}
	b.rejected++
	return false
}

// ReadyToSend reports whether at least one buffer is free.
func (b *Bus) ReadyToSend() bool {
	for i := range b.buffers {
		if b.buffers[i].flag == bufferEmpty {
			return true
		}
	}
	return false
}

// ProcessOutput writes as much of the active frame as sink accepts,
// promoting the first queued frame when nothing is streaming.
func (b *Bus) ProcessOutput(sink stream.Sink) {
	active := b.active()
	if active == nil {
		return
	}
	for active.writeOffset < active.size && sink.AvailableForWrite() > 0 {
		n := sink.Write(active.data[active.writeOffset])
		if n == 0 {
			break
		}
		active.writeOffset += n
		b.bytesOut += uint64(n)
	}
	if active.writeOffset >= active.size {
		active.writeOffset = 0
		active.size = 0
		active.flag = bufferEmpty
	}
}

func (b *Bus) active() *frameBuffer {
	for i := range b.buffers {
		if b.buffers[i].flag == bufferActive {
			return &b.buffers[i]
		}
	}
	var next *frameBuffer
	for i := range b.buffers {
		buf := &b.buffers[i]
		if buf.flag == bufferQueued && (next == nil || buf.queuedAt < next.queuedAt) {
			next = buf
		}
	}
	if next != nil {
		next.flag = bufferActive
	}
	return next
}

// BusStats reports lifetime counters.
type BusStats struct {
	Sent         uint64
	Rejected     uint64
	BytesWritten uint64
}

func (b *Bus) Stats() BusStats {
	return BusStats{Sent: b.sent, Rejected: b.rejected, BytesWritten: b.bytesOut}
}

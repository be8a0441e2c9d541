package stream

// ring is a fixed capacity FIFO of bytes. It is not safe for concurrent use;
// Pipe guards it with its mutex.
type ring struct {
	buf  []byte
	head int // next read position
	size int
}

func newRing(capacity int) ring {
	if capacity <= 0 {
		capacity = 1
	}
	return ring{buf: make([]byte, capacity)}
}

func (r *ring) len() int  { return r.size }
func (r *ring) free() int { return len(r.buf) - r.size }

func (r *ring) push(c byte) bool {
	if r.size == len(r.buf) {
		return false
	}
	r.buf[(r.head+r.size)%len(r.buf)] = c
	r.size++
	return true
}

func (r *ring) pop() (byte, bool) {
	if r.size == 0 {
		return 0, false
	}
	c := r.buf[r.head]
	r.head = (r.head + 1) % len(r.buf)
	r.size--
	return c, true
}

// popInto moves up to len(dst) bytes into dst.
func (r *ring) popInto(dst []byte) int {
	n := 0
	for n < len(dst) {
		c, ok := r.pop()
		if !ok {
			break
		}
		dst[n] = c
		n++
	}
	return n
}

func (r *ring) reset() {
	r.head = 0
	r.size = 0
}

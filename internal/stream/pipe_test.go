package stream

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_ReadWithoutDataReportsNone(t *testing.T) {
	p := NewPipe(4, 4)
	assert.Equal(t, 0, p.Available())
	_, ok := p.Read()
	assert.False(t, ok)
}

func TestPipe_PushThenRead(t *testing.T) {
	p := NewPipe(4, 4)
	require.Equal(t, 3, p.Push([]byte("abc")))
	assert.Equal(t, 3, p.Available())

	var got []byte
	for p.Available() > 0 {
		c, ok := p.Read()
		require.True(t, ok)
		got = append(got, c)
	}
	assert.Equal(t, "abc", string(got))
}

func TestPipe_PushOverrunDropsAndCounts(t *testing.T) {
	p := NewPipe(4, 4)
	assert.Equal(t, 4, p.Push([]byte("abcdef")))
	assert.Equal(t, uint64(2), p.Overruns())
}

func TestPipe_WriteBackpressure(t *testing.T) {
	p := NewPipe(4, 2)
	assert.Equal(t, 2, p.AvailableForWrite())
	assert.Equal(t, 1, p.Write('x'))
	assert.Equal(t, 1, p.Write('y'))
	assert.Equal(t, 0, p.AvailableForWrite())
	assert.Equal(t, 0, p.Write('z'))

	buf := make([]byte, 8)
	n := p.Pull(buf)
	assert.Equal(t, "xy", string(buf[:n]))
	assert.Equal(t, 2, p.AvailableForWrite())
}

func TestPipe_RingWrapsAround(t *testing.T) {
	p := NewPipe(3, 3)
	for i := 0; i < 10; i++ {
		require.Equal(t, 2, p.Push([]byte{byte(i), byte(i + 1)}))
		a, _ := p.Read()
		b, _ := p.Read()
		assert.Equal(t, byte(i), a)
		assert.Equal(t, byte(i+1), b)
	}
}

func TestPipe_ServeMovesBytesBothWays(t *testing.T) {
	host, dev := net.Pipe()
	defer host.Close()

	p := NewPipe(64, 64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Serve(ctx, dev)
		_ = dev.Close()
	}()

	_, err := host.Write([]byte("ping"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return p.Available() == 4 }, time.Second, time.Millisecond)

	for _, c := range []byte("pong") {
		require.Equal(t, 1, p.Write(c))
	}
	got := make([]byte, 4)
	_, err = io.ReadFull(host, got)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestNextBackoffCaps(t *testing.T) {
	d := minBackoff
	for i := 0; i < 20; i++ {
		d = nextBackoff(d)
	}
	assert.Equal(t, maxBackoff, d)
}

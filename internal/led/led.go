// Package led drives the status LED the heartbeat blinks.
package led

import "fmt"

type output interface {
	SetValue(v int) error
	Close() error
}

// LED is a single GPIO output. A nil *LED ignores every call so callers
// without a status LED need no special casing.
type LED struct {
	out output
	on  bool
}

// Open claims the BCM GPIO pin as an output, initially off.
func Open(pin int) (*LED, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("led: invalid gpio pin %d", pin)
	}
	out, err := openGPIOFn(pin)
	if err != nil {
		return nil, err
	}
	return &LED{out: out}, nil
}

func (l *LED) Set(on bool) error {
	if l == nil {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := l.out.SetValue(v); err != nil {
		return fmt.Errorf("led: set: %w", err)
	}
	l.on = on
	return nil
}

func (l *LED) Toggle() error {
	if l == nil {
		return nil
	}
	return l.Set(!l.on)
}

func (l *LED) On() bool {
	return l != nil && l.on
}

// Close turns the LED off and releases the line.
func (l *LED) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	_ = l.out.SetValue(0)
	err := l.out.Close()
	l.out = nil
	return err
}

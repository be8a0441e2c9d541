// Package serial opens tty devices for GNSS receivers and telemetry radios.
package serial

import (
	"fmt"
	"os"
)

// AutoDetect returns the first USB serial device node that exists, or "".
// USB CDC devices (/dev/ttyACM*) are preferred over USB-UART bridges.
func AutoDetect() string {
	for _, prefix := range []string{"/dev/ttyACM", "/dev/ttyUSB"} {
		for i := 0; i < 10; i++ {
			p := fmt.Sprintf("%s%d", prefix, i)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

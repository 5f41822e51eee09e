package source

import (
	"fmt"

	"github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens a serial-attached sensor that writes one JSON JointFrame
// per line. Frames are delivered as fast as the device sends them.
func OpenSerial(cfg SerialConfig) (*Replay, error) {
	opts := serial.OpenOptions{
		PortName:              cfg.Port,
		BaudRate:              cfg.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	r := NewReplay(port, 0, false)
	r.name = string(KindSerial)
	return r, nil
}

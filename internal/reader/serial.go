// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package reader

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

const (
	frameLen      = 9
	defaultBaud   = 115200
	serialTimeout = time.Second
)

var (
	framePreamble   = []byte{0x02, 0x09}
	frameTerminator = byte(0x03)
)

// Serial implements TagReader for serial RFID readers that send fixed
// frames: [0x02][0x09][4 data bytes + 2 id bytes][xor][0x03]. Only the UID
// is available.
type Serial struct {
	port   *serial.Port
	device string
}

// NewSerial opens a serial RFID reader. Baud 0 means 115200.
func NewSerial(device string, baud int) (*Serial, error) {
	if baud == 0 {
		baud = defaultBaud
	}
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: serialTimeout,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return &Serial{port: port, device: device}, nil
}

// Read implements TagReader. Timeouts and malformed frames are skipped.
func (s *Serial) Read(ctx context.Context) (TagEvent, error) {
	buff := make([]byte, frameLen)
	for {
		if err := ctx.Err(); err != nil {
			return TagEvent{}, err
		}
		n, err := s.port.Read(buff)
		if err != nil || n != frameLen {
			// Timeout or partial read, try again.
			continue
		}
		if tag, ok := parseFrame(buff); ok {
			return TagEvent{UID: tag}, nil
		}
	}
}

// parseFrame validates preamble, terminator and checksum and returns the
// 32-bit tag number.
func parseFrame(buff []byte) (uint64, bool) {
	if len(buff) != frameLen {
		return 0, false
	}
	if !bytes.Equal(buff[0:2], framePreamble) || buff[8] != frameTerminator {
		return 0, false
	}
	data := buff[1:7]
	xor := data[0]
	for i := 1; i < len(data); i++ {
		xor ^= data[i]
	}
	if xor != buff[7] {
		return 0, false
	}
	tag := uint64(data[2])<<24 | uint64(data[3])<<16 | uint64(data[4])<<8 | uint64(data[5])
	return tag, tag != 0
}

// Close implements TagReader.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

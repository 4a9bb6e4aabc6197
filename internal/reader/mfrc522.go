// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package reader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/toeirei/keyfob/internal/logging"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/mfrc522"
	"periph.io/x/devices/v3/mfrc522/commands"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/rpi"
)

const (
	// Card text lives in sector 2, blocks 0..2 (48 bytes).
	textSector = 2
	textBlocks = 3
	blockSize  = 16
	textSize   = textBlocks * blockSize

	uidPollTimeout = 200 * time.Millisecond
	cardOpTimeout  = time.Second
)

// MFRC522 drives an NXP MFRC522 module on SPI0.0 with RST on GPIO25 and IRQ
// on GPIO24. It reads the UID and the text block and can write the text.
type MFRC522 struct {
	mu   sync.Mutex
	port spi.PortCloser
	dev  *mfrc522.Dev
}

// NewMFRC522 initialises the host drivers and opens the module.
func NewMFRC522() (*MFRC522, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	port, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("open spi port: %w", err)
	}
	dev, err := mfrc522.NewSPI(port, rpi.P1_22, rpi.P1_18)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("open mfrc522: %w", err)
	}
	logging.Infof("Opened RFID reader: %v", dev)
	return &MFRC522{port: port, dev: dev}, nil
}

// Read implements TagReader. It polls for a card until one answers, then
// reads the text blocks.
func (r *MFRC522) Read(ctx context.Context) (TagEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return TagEvent{}, err
		}
		r.mu.Lock()
		uid, err := r.dev.ReadUID(uidPollTimeout)
		r.mu.Unlock()
		if err != nil || len(uid) == 0 {
			// No card in the field within the poll timeout.
			continue
		}

		text, err := r.readText()
		if err != nil {
			return TagEvent{}, fmt.Errorf("read card %x: %w", uid, err)
		}
		return TagEvent{UID: UIDFromBytes(uid), Text: text, HasText: true}, nil
	}
}

func (r *MFRC522) readText() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, 0, textSize)
	for block := 0; block < textBlocks; block++ {
		data, err := r.dev.ReadCard(cardOpTimeout, commands.PICC_AUTHENT1A, textSector, block, mfrc522.DefaultKey)
		if err != nil {
			return "", err
		}
		buf = append(buf, data...)
	}
	return DecodeText(buf), nil
}

// Write implements TagWriter for the card currently in the field.
func (r *MFRC522) Write(ctx context.Context, text string) error {
	blocks, err := EncodeText(text)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for block, data := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.dev.WriteCard(cardOpTimeout, commands.PICC_AUTHENT1A, textSector, block, data, mfrc522.DefaultKey); err != nil {
			return fmt.Errorf("write block %d: %w", block, err)
		}
	}
	return nil
}

// Close implements TagReader.
func (r *MFRC522) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dev != nil {
		_ = r.dev.Halt()
	}
	if r.port == nil {
		return nil
	}
	return r.port.Close()
}

// UIDFromBytes folds UID bytes big-endian into an integer. Only the last
// seven bytes are kept so the value fits a signed 64-bit column.
func UIDFromBytes(b []byte) uint64 {
	if len(b) > 7 {
		b = b[len(b)-7:]
	}
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n
}

// EncodeText pads text with spaces to the three text blocks.
func EncodeText(text string) ([textBlocks][blockSize]byte, error) {
	var out [textBlocks][blockSize]byte
	if len(text) > textSize {
		return out, fmt.Errorf("text is %d bytes, card holds %d", len(text), textSize)
	}
	padded := text + strings.Repeat(" ", textSize-len(text))
	for i := range out {
		copy(out[i][:], padded[i*blockSize:(i+1)*blockSize])
	}
	return out, nil
}

// DecodeText strips the NUL and space padding written by EncodeText or by
// factory-blank cards.
func DecodeText(b []byte) string {
	return strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
}

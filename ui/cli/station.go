// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/toeirei/keyfob/internal/config"
	"github.com/toeirei/keyfob/internal/crypto"
	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/engine"
	"github.com/toeirei/keyfob/internal/i18n"
	"github.com/toeirei/keyfob/internal/indicator"
	"github.com/toeirei/keyfob/internal/listener"
	"github.com/toeirei/keyfob/internal/logging"
	"github.com/toeirei/keyfob/internal/notify"
	"github.com/toeirei/keyfob/internal/reader"
	"github.com/toeirei/keyfob/internal/security"
	"github.com/toeirei/keyfob/internal/service"
)

// station is one tap point: the reader, its LEDs, the engine and the
// services that share the store and the cipher.
type station struct {
	store     db.Store
	cipher    *crypto.Cipher
	reader    reader.TagReader
	mock      *reader.Mock
	indicator indicator.Indicator
	notifier  *notify.Client
	engine    *engine.Engine
	listener  *listener.Listener

	logs      *service.Logs
	tags      *service.Tags
	registrar *service.Registrar
	exporter  *service.Exporter
}

// newReaderFunc opens the configured hardware reader. Tests replace it.
var newReaderFunc = reader.New

// passphraseInput is where the passphrase prompt reads from.
var passphraseInput io.Reader = os.Stdin

// openCipher returns the cipher for names and labels. A passphrase from the
// config or the prompt derives the key; otherwise the key file is used.
func openCipher(cfg config.Config) (*crypto.Cipher, error) {
	pass := cfg.Passphrase
	if pass == "" && askPassphrase {
		p, err := promptPassphrase(passphraseInput, os.Stderr)
		if err != nil {
			return nil, err
		}
		pass = p
	}
	if pass != "" {
		secret := security.FromString(pass)
		defer secret.Zero()
		return crypto.FromPassphrase(secret, cfg.SecretKeyPath+".salt")
	}
	return crypto.Load(cfg.SecretKeyPath)
}

// promptPassphrase reads a passphrase without echo when in is a terminal,
// and a plain line otherwise.
func promptPassphrase(in io.Reader, out io.Writer) (string, error) {
	_, _ = fmt.Fprint(out, i18n.T("cli.passphrase_prompt"))
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New(i18n.T("cli.passphrase_empty"))
	}
	return line, nil
}

// newServices builds the store-backed services without touching hardware.
func newServices(cfg config.Config, store db.Store) (*station, error) {
	if store == nil {
		return nil, errors.New("database is not initialized")
	}
	c, err := openCipher(cfg)
	if err != nil {
		return nil, fmt.Errorf("open encryption key: %w", err)
	}
	return &station{
		store:     store,
		cipher:    c,
		logs:      &service.Logs{Store: store, Cipher: c},
		tags:      &service.Tags{Store: store, Cipher: c},
		registrar: &service.Registrar{Store: store, Cipher: c},
		exporter:  &service.Exporter{Store: store, Cipher: c},
	}, nil
}

// newStation builds the services plus the reader, the indicator, the MQTT
// publisher, the engine and the listener.
func newStation(cfg config.Config, store db.Store) (*station, error) {
	st, err := newServices(cfg, store)
	if err != nil {
		return nil, err
	}

	if cfg.Mock || cfg.Reader.Type == "mock" {
		st.mock = reader.NewMock()
		st.reader = st.mock
	} else {
		rd, err := newReaderFunc(reader.Config{
			Type:   cfg.Reader.Type,
			Device: cfg.Reader.Device,
			Baud:   cfg.Reader.Baud,
			Format: cfg.Reader.Format,
		})
		if err != nil {
			return nil, errors.New(i18n.T("cli.error_reader", err))
		}
		st.reader = rd
	}

	ind, err := indicator.New(indicator.Config{
		Driver:    cfg.Indicator.Driver,
		Chip:      cfg.Indicator.Chip,
		GreenPin:  cfg.Indicator.GreenPin,
		YellowPin: cfg.Indicator.YellowPin,
		RedPin:    cfg.Indicator.RedPin,
	})
	if err != nil {
		// LEDs are optional; the station works without them.
		logging.Warnf("status LEDs disabled: %v", err)
		ind = &indicator.Noop{}
	}
	st.indicator = ind

	st.notifier, err = notify.New(notify.Config{
		Host:       cfg.MQTT.Host,
		Port:       cfg.MQTT.Port,
		ClientID:   cfg.MQTT.ClientID,
		CACert:     cfg.MQTT.CACert,
		ClientCert: cfg.MQTT.ClientCert,
		ClientKey:  cfg.MQTT.ClientKey,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("mqtt: %w", err)
	}
	if st.notifier.IsEnabled() {
		if err := st.notifier.Connect(); err != nil {
			// paho keeps retrying in the background.
			logging.Warnf("mqtt: initial connect failed: %v", err)
		}
	}

	st.engine = engine.New(store, engine.SystemClock{}, engine.Timing{
		CheckoutWindow: cfg.Timing.CheckoutWindow,
		HoldWindow:     cfg.Timing.HoldWindow,
		MinHold:        cfg.Timing.MinHold,
	})
	st.listener = listener.New(st.reader, st.engine, listener.Options{
		Indicator: st.indicator,
		Publisher: st.notifier,
	})
	return st, nil
}

// labeler returns a lookup from UID to decrypted label, falling back to hex.
func (st *station) labeler(ctx context.Context) func(uid uint64) string {
	labels := map[uint64]string{}
	load := func() {
		rows, err := st.tags.List(ctx)
		if err != nil {
			logging.Warnf("load tag labels: %v", err)
			return
		}
		for _, r := range rows {
			labels[r.UID] = r.Label
		}
	}
	load()
	return func(uid uint64) string {
		if l, ok := labels[uid]; ok {
			return l
		}
		// Tags registered since the last load.
		load()
		if l, ok := labels[uid]; ok {
			return l
		}
		return fmt.Sprintf("%X", uid)
	}
}

// Close releases the hardware. The store is closed by Execute.
func (st *station) Close() {
	if st.reader != nil {
		if err := st.reader.Close(); err != nil {
			logging.Warnf("closing reader: %v", err)
		}
	}
	if st.indicator != nil {
		if err := st.indicator.Release(); err != nil {
			logging.Warnf("releasing LEDs: %v", err)
		}
	}
	if st.notifier != nil {
		st.notifier.Close()
	}
}

// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package notify publishes check events to an MQTT broker so other systems
// can follow key movements as they happen.
package notify

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	clog "github.com/charmbracelet/log"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/toeirei/keyfob/internal/engine"
	"github.com/toeirei/keyfob/internal/logging"
)

// Config holds MQTT connection settings. An empty Host disables publishing.
type Config struct {
	Host       string
	Port       int
	ClientID   string
	CACert     string
	ClientCert string
	ClientKey  string
}

// Client publishes tap results. A disabled Client accepts every call and
// does nothing.
type Client struct {
	client   paho.Client
	clientID string
	enabled  bool
	// publish is swapped in tests.
	publish func(topic string, retained bool, payload []byte)
}

// Event is the JSON payload sent for every recorded check event.
type Event struct {
	ID          int64     `json:"id"`
	Direction   string    `json:"direction"`
	KeyUID      string    `json:"key_uid"`
	EmployeeUID string    `json:"employee_uid"`
	At          time.Time `json:"at"`
}

// New creates a client. It returns a disabled client if Host is empty.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "keyfob"
	}
	c := &Client{clientID: cfg.ClientID}
	if cfg.Host == "" {
		logging.Debugf("mqtt disabled (no host configured)")
		return c, nil
	}
	c.enabled = true

	var broker string
	var tlsConfig *tls.Config
	if cfg.CACert != "" || cfg.ClientCert != "" {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)
		var err error
		if tlsConfig, err = buildTLSConfig(cfg); err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
	} else {
		if cfg.Port == 0 {
			cfg.Port = 1883
		}
		broker = fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
		logging.Warnf("mqtt using non-TLS connection to %s", broker)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60*time.Second).
		SetWill(c.StatusTopic(), "offline", 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logging.Warnf("mqtt connection lost: %v", err)
		}).
		SetOnConnectHandler(func(cl paho.Client) {
			logging.Infof("mqtt connected to %s", broker)
			cl.Publish(c.StatusTopic(), 1, true, "online")
		})
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	c.client = paho.NewClient(opts)
	c.publish = func(topic string, retained bool, payload []byte) {
		c.client.Publish(topic, 1, retained, payload)
	}

	paho.ERROR = logging.Std(clog.ErrorLevel, "mqtt")
	paho.CRITICAL = logging.Std(clog.ErrorLevel, "mqtt")
	paho.WARN = logging.Std(clog.WarnLevel, "mqtt")

	return c, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CACert)
		}
		tlsConfig.RootCAs = pool
	}
	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// Connect starts the connection. With connect-retry enabled it returns once
// the first attempt is queued, so a missing broker does not block startup.
func (c *Client) Connect() error {
	if !c.enabled {
		return nil
	}
	token := c.client.Connect()
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

// Close publishes the offline status and disconnects.
func (c *Client) Close() {
	if !c.enabled || c.client == nil {
		return
	}
	if c.client.IsConnected() {
		c.client.Publish(c.StatusTopic(), 1, true, "offline").WaitTimeout(time.Second)
	}
	c.client.Disconnect(250)
}

// IsEnabled returns whether MQTT is enabled.
func (c *Client) IsEnabled() bool { return c.enabled }

// EventTopic is where check events go.
func (c *Client) EventTopic() string { return "keyfob/" + c.clientID + "/event" }

// StatusTopic carries the retained online/offline state.
func (c *Client) StatusTopic() string { return "keyfob/" + c.clientID + "/status" }

// Publish sends res if it recorded a check event. Other results are dropped.
func (c *Client) Publish(res engine.Result) {
	if !c.enabled || c.publish == nil {
		return
	}
	payload, ok, err := EventPayload(res)
	if err != nil {
		logging.Warnf("mqtt: encode event: %v", err)
		return
	}
	if !ok {
		return
	}
	c.publish(c.EventTopic(), false, payload)
}

// EventPayload encodes the event of a recorded result. ok is false when res
// did not record anything.
func EventPayload(res engine.Result) ([]byte, bool, error) {
	if !res.Recorded() {
		return nil, false, nil
	}
	ev := res.Event
	b, err := json.Marshal(Event{
		ID:          ev.ID,
		Direction:   string(ev.Direction),
		KeyUID:      fmt.Sprintf("%X", ev.KeyUID),
		EmployeeUID: fmt.Sprintf("%X", ev.EmployeeUID),
		At:          ev.OccurredAt.UTC(),
	})
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Package events announces parsed articles to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	StatusParsed   = "parsed"
	StatusFallback = "fallback"
)

var ErrNotConnected = errors.New("events: mqtt client not connected")

// Parsed is published after each successful upload.
type Parsed struct {
	Hash     string   `json:"hash"`
	DOI      string   `json:"doi,omitempty"`
	Title    string   `json:"title,omitempty"`
	Sections []string `json:"sections"`
	Status   string   `json:"status"`
}

type Publisher interface {
	Publish(ctx context.Context, p Parsed) error
	Close()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Parsed) error { return nil }
func (Nop) Close()                                {}

// MQTT publishes retained QoS 0 messages to one topic.
type MQTT struct {
	client mqtt.Client
	topic  string
	log    *slog.Logger
}

func NewMQTT(broker, clientID, topic string, log *slog.Logger) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(mqtt.Client) {
		log.Info("connected to mqtt broker", "broker", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &MQTT{client: client, topic: topic, log: log}, nil
}

func (m *MQTT) Publish(ctx context.Context, p Parsed) error {
	if !m.client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	token := m.client.Publish(m.topic, 0, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	m.log.Debug("published event", "topic", m.topic, "hash", p.Hash)
	return nil
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

package link

import (
	"errors"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTT defaults.
const (
	DefaultMQTTTopic    = "wheel/link"
	DefaultMQTTClientID = "wheel-sensor"
)

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Topic          string // frames are published here
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
}

// mqttClient is the subset of paho.Client used by MQTTLink.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnectionOpen() bool
	Disconnect(quiesce uint)
}

// MQTTLink broadcasts frames as QoS 0 MQTT messages.
type MQTTLink struct {
	client      mqttClient
	topic       string
	sendTimeout time.Duration
}

// StatusTopic returns the retained online/offline topic for a frame topic.
func StatusTopic(topic string) string {
	return topic + "/status"
}

// NewMQTTLink connects to the broker. It fails if the first connection does
// not complete within the connect timeout.
func NewMQTTLink(cfg MQTTConfig) (*MQTTLink, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: no broker configured")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultMQTTClientID
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultMQTTTopic
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Millisecond
	}

	status := StatusTopic(cfg.Topic)
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(status, "offline", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			log.Printf("mqtt: connected to %s", cfg.Broker)
			c.Publish(status, 1, true, "online")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt: connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to broker: %w", err)
	}

	return newMQTTLink(client, cfg.Topic, cfg.SendTimeout), nil
}

func newMQTTLink(client mqttClient, topic string, sendTimeout time.Duration) *MQTTLink {
	return &MQTTLink{client: client, topic: topic, sendTimeout: sendTimeout}
}

// Send publishes one frame with QoS 0, not retained.
func (l *MQTTLink) Send(frame []byte) error {
	if !l.client.IsConnectionOpen() {
		return errors.New("mqtt: not connected")
	}
	token := l.client.Publish(l.topic, 0, false, frame)
	if !token.WaitTimeout(l.sendTimeout) {
		return fmt.Errorf("mqtt: publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the client currently holds a broker connection.
func (l *MQTTLink) IsConnected() bool {
	return l.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (l *MQTTLink) Close() error {
	l.client.Disconnect(250)
	return nil
}

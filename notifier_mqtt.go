package lifo

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"
)

// MQTTPublisher is the part of mqtt.Client used by MQTTNotifier.
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// mqttEvent is the message published for every event.
type mqttEvent struct {
	Device string `msgpack:"device"`
	Event  string `msgpack:"event"`
	Seq    uint64 `msgpack:"seq"`
}

// MQTTNotifier publishes events to an MQTT topic so that consumers on other
// hosts can learn that data is available. Messages are published with QoS 0
// and are not retained; the notifier never waits for the broker.
type MQTTNotifier struct {
	pub    MQTTPublisher
	topic  string
	device string
	seq    atomic.Uint64
}

// NewMQTTNotifier returns a notifier that publishes to topic on behalf of
// the named device.
func NewMQTTNotifier(pub MQTTPublisher, topic, device string) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, topic: topic, device: device}
}

// Notify publishes ev. An error is returned only when the client reports one
// synchronously, for example while disconnected.
func (m *MQTTNotifier) Notify(ev Event) error {
	payload, err := msgpack.Marshal(mqttEvent{
		Device: m.device,
		Event:  ev.String(),
		Seq:    m.seq.Add(1),
	})
	if err != nil {
		return fmt.Errorf("encode mqtt event: %w", err)
	}

	token := m.pub.Publish(m.topic, 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

// ConnectMQTT connects a client to the broker described by cfg. The client
// reconnects on its own after a lost connection.
func ConnectMQTT(cfg MQTTConfig, logger *slog.Logger) (mqtt.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("mqtt connection established", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, will auto-reconnect", "broker", cfg.Broker, "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.connectTimeout()) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return client, nil
}

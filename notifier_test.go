package lifo

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"
)

func TestChanNotifier(t *testing.T) {
	ch := make(chan Event, 1)
	n := ChanNotifier(ch)

	if err := n.Notify(EventDataAvailable); err != nil {
		t.Fatalf("First Notify failed: %v", err)
	}
	if err := n.Notify(EventDataAvailable); !errors.Is(err, errDropped) {
		t.Fatalf("Expected errDropped on full channel, got %v", err)
	}
	if ev := <-ch; ev != EventDataAvailable {
		t.Errorf("Expected %v, got %v", EventDataAvailable, ev)
	}
}

func TestEventString(t *testing.T) {
	if s := EventDataAvailable.String(); s != "data_available" {
		t.Errorf("Expected data_available, got %q", s)
	}
	if s := Event(0).String(); s != "unknown" {
		t.Errorf("Expected unknown, got %q", s)
	}
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(complete bool, err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	messages []published
	token    mqtt.Token
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.messages = append(p.messages, published{topic, qos, retained, payload.([]byte)})
	return p.token
}

func TestMQTTNotifierPublishes(t *testing.T) {
	pub := &fakePublisher{token: newFakeToken(false, nil)}
	n := NewMQTTNotifier(pub, "lifo/test/events", "test")

	for i := 0; i < 2; i++ {
		if err := n.Notify(EventDataAvailable); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}
	if len(pub.messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(pub.messages))
	}

	msg := pub.messages[1]
	if msg.topic != "lifo/test/events" || msg.qos != 0 || msg.retained {
		t.Errorf("Unexpected publish parameters: %+v", msg)
	}
	var ev mqttEvent
	if err := msgpack.Unmarshal(msg.payload, &ev); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if ev.Device != "test" || ev.Event != "data_available" || ev.Seq != 2 {
		t.Errorf("Unexpected event: %+v", ev)
	}
}

func TestMQTTNotifierReportsImmediateError(t *testing.T) {
	pub := &fakePublisher{token: newFakeToken(true, errors.New("not connected"))}
	n := NewMQTTNotifier(pub, "t", "d")
	if err := n.Notify(EventDataAvailable); err == nil {
		t.Fatal("Expected error from completed failing token")
	}
}

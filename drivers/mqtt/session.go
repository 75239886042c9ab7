package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	// ErrTransactionsUnsupported is returned for transactional channel requests.
	ErrTransactionsUnsupported = errors.New("mqtt: transactions are not supported")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("mqtt: session closed")
)

// Session is the MQTT counterpart of a broker channel: a publish/subscribe
// scope on the shared client. Closing it removes its subscriptions.
type Session struct {
	client  mqtt.Client
	timeout time.Duration

	mu     sync.Mutex
	topics map[string]struct{}
	closed bool
}

func newSession(client mqtt.Client, timeout time.Duration) *Session {
	return &Session{client: client, timeout: timeout, topics: make(map[string]struct{})}
}

// Tx always fails; MQTT has no transactions.
func (s *Session) Tx() error {
	return ErrTransactionsUnsupported
}

// Publish sends payload to topic and waits for the broker acknowledgement
// matching qos.
func (s *Session) Publish(topic string, qos byte, retain bool, payload []byte) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	return s.wait(s.client.Publish(topic, qos, retain, payload), "publish")
}

// Subscribe registers handler for messages on topic.
func (s *Session) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if err := s.wait(token, "subscribe"); err != nil {
		return err
	}
	s.topics[topic] = struct{}{}
	return nil
}

// Close unsubscribes every topic subscribed through this session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if len(s.topics) == 0 || !s.client.IsConnectionOpen() {
		return nil
	}
	topics := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		topics = append(topics, topic)
	}
	return s.wait(s.client.Unsubscribe(topics...), "unsubscribe")
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) wait(token mqtt.Token, op string) error {
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("mqtt: %s timeout", op)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: %s: %w", op, err)
	}
	return nil
}

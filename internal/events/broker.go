package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/attestor-io/core/internal/logging"
)

// Broker publishes attestation-id notifications to named topics over
// RabbitMQ, one fanout exchange per Topic (spec §6 event topics). A
// publish happens only after the corresponding attestation or
// transaction has been durably recorded — the broker never originates
// facts, it only announces already-stored ones.
type Broker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logging.ComponentLogger
}

// NewBroker dials endpoint and declares a fanout exchange per Topic.
func NewBroker(endpoint string, logger *logging.ComponentLogger) (*Broker, error) {
	conn, err := amqp.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("dialing event broker %s: %w", endpoint, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening broker channel: %w", err)
	}
	for _, t := range All() {
		if err := ch.ExchangeDeclare(string(t), "fanout", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declaring exchange %s: %w", t, err)
		}
	}
	logger.Info().Str("endpoint", endpoint).Int("topics", len(All())).Msg("connected to event broker")
	return &Broker{conn: conn, channel: ch, logger: logger}, nil
}

// Close tears down the channel and connection.
func (b *Broker) Close() error {
	var err error
	if b.channel != nil {
		err = b.channel.Close()
	}
	if b.conn != nil {
		if cerr := b.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Publish announces attestationID on topic. Not valid for an unknown
// topic.
func (b *Broker) Publish(ctx context.Context, topic Topic, attestationID string) error {
	if !Valid(topic) {
		return fmt.Errorf("unknown topic %q", topic)
	}
	return b.channel.PublishWithContext(ctx, string(topic), "", false, false, amqp.Publishing{
		ContentType: "text/plain",
		Timestamp:   time.Now(),
		Body:        []byte(attestationID),
	})
}

// Subscribe opens an anonymous exclusive queue bound to topic and
// returns a channel of attestation ids published to it. The returned
// channel closes when ctx is cancelled.
func (b *Broker) Subscribe(ctx context.Context, topic Topic) (<-chan string, error) {
	if !Valid(topic) {
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
	q, err := b.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declaring subscriber queue for %s: %w", topic, err)
	}
	if err := b.channel.QueueBind(q.Name, "", string(topic), false, nil); err != nil {
		return nil, fmt.Errorf("binding subscriber queue for %s: %w", topic, err)
	}
	deliveries, err := b.channel.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consuming topic %s: %w", topic, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case out <- string(d.Body):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

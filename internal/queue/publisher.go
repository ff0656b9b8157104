package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends inspection events to a durable RabbitMQ queue. It dials
// per publish; submissions are rare enough that a pooled connection is not
// worth its reconnect handling.
type Publisher struct {
	url   string
	queue string
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url, queueName string) *Publisher {
	return &Publisher{url: url, queue: queueName}
}

// PublishInspectionSubmitted publishes ev as a persistent JSON message.
func (p *Publisher) PublishInspectionSubmitted(ctx context.Context, ev InspectionSubmittedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch, p.queue); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.InspectionID,
		Type:         "inspection.submitted",
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// declare makes sure the durable queue exists.
func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("queue declare: %w", err)
	}
	return q, nil
}

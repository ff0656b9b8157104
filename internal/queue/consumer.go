package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/equinox/fleet-inspections/internal/logger"
)

// LogFileName is the file the consumer appends to inside its log directory.
const LogFileName = "inspections.log"

// Consumer reads inspection events and appends one line per event to
// <logDir>/inspections.log.
type Consumer struct {
	url    string
	queue  string
	logDir string
	log    *logger.Logger

	mu sync.Mutex // serializes file appends
}

// NewConsumer returns a Consumer for the broker at url.
func NewConsumer(url, queueName, logDir string, log *logger.Logger) *Consumer {
	return &Consumer{url: url, queue: queueName, logDir: logDir, log: log}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff. It returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("inspection consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("inspection consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("inspection consumer: set QoS failed", "error", err)
	}
	if _, err := declare(ch, c.queue); err != nil {
		return err
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleMessage(d.Body); err != nil {
				c.log.Error("inspection consumer: handle message failed", "error", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event and appends it to the log file.
func (c *Consumer) HandleMessage(body []byte) error {
	var ev InspectionSubmittedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.InspectionID == "" {
		return errors.New("event without inspection_id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	submittedBy := ev.SubmittedBy
	if submittedBy == "" {
		submittedBy = "anonymous"
	}
	line := fmt.Sprintf("[%s] Inspection submitted | inspection_id=%s | placa=%q | cedula=%q | conductor=%q | submitted_by=%s\n",
		ev.SubmittedAt, ev.InspectionID, ev.Placa, ev.Cedula, ev.Conductor, submittedBy)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

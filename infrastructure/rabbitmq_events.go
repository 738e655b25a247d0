package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dropvid/clip-processing-service/domain"
	"github.com/dropvid/clip-processing-service/usecase"
)

// QueuePublisher pushes notification batches onto the processing queue.
type QueuePublisher struct {
	Conn  *amqp.Connection
	Queue string
}

func NewQueuePublisher(conn *amqp.Connection, queue string) *QueuePublisher {
	return &QueuePublisher{Conn: conn, Queue: queue}
}

func (p *QueuePublisher) PublishBatch(ctx context.Context, batch domain.NotificationBatch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal notification batch: %w", err)
	}

	ch, err := p.Conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := declareQueue(ch, p.Queue); err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	return nil
}

// QueueConsumer feeds queued notification batches into the pipeline
// driver. Messages are auto-acked: processing failures surface through
// the FAILED status record rather than redelivery.
type QueueConsumer struct {
	Conn   *amqp.Connection
	Queue  string
	Driver *usecase.ProcessUploadUseCase
}

func NewQueueConsumer(conn *amqp.Connection, queue string, driver *usecase.ProcessUploadUseCase) *QueueConsumer {
	return &QueueConsumer{Conn: conn, Queue: queue, Driver: driver}
}

// Start blocks consuming until ctx is cancelled or the channel closes.
func (c *QueueConsumer) Start(ctx context.Context) error {
	ch, err := c.Conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	q, err := declareQueue(ch, c.Queue)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	log.Printf("consumer ready queue=%s", c.Queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("queue %s channel closed", c.Queue)
			}
			var batch domain.NotificationBatch
			if err := json.Unmarshal(d.Body, &batch); err != nil || len(batch.Records) == 0 {
				log.Printf("dropping unreadable batch error=%v body=%q", err, truncate(string(d.Body), 200))
				continue
			}
			res := c.Driver.ProcessBatch(ctx, batch)
			log.Printf("batch done queue=%s processed=%d failed=%d", c.Queue, res.Processed, res.Failed)
		}
	}
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return q, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package outboxsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/httpx"
)

// Sink delivers one outbox event to the configured consumer. The delivery
// payload always carries the event id so receivers can deduplicate.
type Sink interface {
	Deliver(ctx context.Context, ev model.OutboxEvent) (transport string, httpStatus int, err error)
}

type deliveryEnvelope struct {
	EventID string          `json:"event_id"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// HTTPSink POSTs events to a webhook consumer.
type HTTPSink struct {
	URL    string
	Client *http.Client
}

func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{URL: url, Client: httpx.Client()}
}

func (s *HTTPSink) Deliver(ctx context.Context, ev model.OutboxEvent) (string, int, error) {
	body, err := json.Marshal(deliveryEnvelope{EventID: ev.EventID, Topic: ev.Topic, Payload: ev.Payload})
	if err != nil {
		return "http", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return "http", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Id", ev.EventID)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "http", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "http", resp.StatusCode, errs.New(errs.CodeDelivery, fmt.Sprintf("sink returned %s", resp.Status))
	}
	return "http", resp.StatusCode, nil
}

// AMQPSink publishes events to a durable queue.
type AMQPSink struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewAMQPSink(url, queue string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return &AMQPSink{conn: conn, ch: ch, queue: queue}, nil
}

func (s *AMQPSink) Deliver(ctx context.Context, ev model.OutboxEvent) (string, int, error) {
	body, err := json.Marshal(deliveryEnvelope{EventID: ev.EventID, Topic: ev.Topic, Payload: ev.Payload})
	if err != nil {
		return "amqp", 0, err
	}
	if err := s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Topic,
		Body:         body,
	}); err != nil {
		return "amqp", 0, errs.New(errs.CodeDelivery, err.Error())
	}
	return "amqp", 0, nil
}

func (s *AMQPSink) Close() {
	if s.ch != nil {
		s.ch.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

// NoopSink accepts everything. Used when no consumer is configured so the
// queue drains instead of growing forever.
type NoopSink struct{}

func (NoopSink) Deliver(context.Context, model.OutboxEvent) (string, int, error) {
	return "noop", 0, nil
}

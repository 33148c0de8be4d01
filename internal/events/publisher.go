package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"healthmate/pkg/domain"
)

// Routing keys published on the topic exchange.
const (
	KeyReportCreated = "report.created"
)

// ReportCreated is the payload emitted after a report persists.
type ReportCreated struct {
	ReportID  string    `json:"reportId"`
	UserID    string    `json:"userId"`
	FileType  string    `json:"fileType"`
	CreatedAt time.Time `json:"createdAt"`
}

// Publisher emits domain events for downstream consumers (notifications,
// analytics). A nil Publisher is valid and drops all events.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewPublisher connects to RabbitMQ and declares a durable topic exchange.
// An empty URL returns (nil, nil): events are disabled.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}
	if strings.TrimSpace(exchange) == "" {
		exchange = "healthmate.events"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// PublishReportCreated emits a report.created event.
func (p *Publisher) PublishReportCreated(ctx context.Context, report domain.Report) error {
	return p.publishJSON(ctx, KeyReportCreated, ReportCreated{
		ReportID:  report.ID,
		UserID:    report.UserID,
		FileType:  report.FileType,
		CreatedAt: report.CreatedAt,
	})
}

func (p *Publisher) publishJSON(ctx context.Context, key string, v any) error {
	if p == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        b,
	})
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

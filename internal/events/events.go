package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"leasemail/pkg/domain"
)

const (
	// DefaultExchange is the topic exchange draft events go to.
	DefaultExchange = "ex.leasemail"
	// DraftGenerated is the routing key for a completed draft.
	DraftGenerated = "draft.generated"
)

// DraftEvent is the payload published after a draft is persisted.
type DraftEvent struct {
	Type         string    `json:"type"`
	DraftID      string    `json:"draftId"`
	Member       string    `json:"member"`
	ContactEmail string    `json:"contactEmail"`
	Company      string    `json:"company"`
	ArchiveKey   string    `json:"archiveKey,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewDraftEvent builds the event for draft. The email body is not included.
// RequestID is left for the caller, which knows the request scope.
func NewDraftEvent(draft domain.Draft, archiveKey string) DraftEvent {
	return DraftEvent{
		Type:         DraftGenerated,
		DraftID:      draft.ID,
		Member:       draft.Member,
		ContactEmail: draft.ContactEmail,
		Company:      draft.Contact.Company,
		ArchiveKey:   archiveKey,
		CreatedAt:    draft.CreatedAt.UTC(),
	}
}

// Publisher announces draft events.
type Publisher interface {
	Publish(ctx context.Context, event DraftEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, DraftEvent) error { return nil }
func (Nop) Close() error                              { return nil }

// AMQPPublisher publishes draft events to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials url and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if strings.TrimSpace(exchange) == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
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
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event DraftEvent) error {
	msg, err := Message(event)
	if err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// Message encodes event as a persistent JSON publishing.
func Message(event DraftEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.DraftID,
		CorrelationId: event.RequestID,
		Timestamp:     event.CreatedAt,
		Type:          event.Type,
	}, nil
}

package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Event statuses.
const (
	StatusApplied  = "applied"
	StatusRejected = "rejected"
)

// publishChannel is the subset of *amqp.Channel the publisher uses.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	channel  publishChannel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// TransitionEvent reports the outcome of one instruction
type TransitionEvent struct {
	EventID            string   `json:"event_id"`
	RequestID          string   `json:"request_id"`
	InstructionID      string   `json:"instruction_id,omitempty"`
	Instruction        string   `json:"instruction"`
	Signer             string   `json:"signer,omitempty"`
	Status             string   `json:"status"`
	Code               string   `json:"code,omitempty"`
	Reason             string   `json:"reason,omitempty"`
	Accounts           []string `json:"accounts,omitempty"`
	Category           string   `json:"category,omitempty"`
	Quantity           uint64   `json:"quantity,omitempty"`
	TotalConsumed      uint64   `json:"total_consumed,omitempty"`
	Points             uint64   `json:"points"`
	ReductionBps       uint64   `json:"reduction_bps,omitempty"`
	Baseline           uint64   `json:"baseline,omitempty"`
	Balance            uint64   `json:"balance"`
	RedemptionSequence *uint64  `json:"redemption_sequence,omitempty"`
	LedgerTimestamp    string   `json:"ledger_timestamp"`
}

// PublishTransitionEvent publishes an applied or rejected instruction event.
// A missing EventID is filled with a random UUID.
func (p *Publisher) PublishTransitionEvent(ctx context.Context, event TransitionEvent, routingKey string) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.EventID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published transition event",
		zap.String("routing_key", routingKey),
		zap.String("event_id", event.EventID),
		zap.String("instruction", event.Instruction),
		zap.String("status", event.Status),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}

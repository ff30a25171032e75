package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/rifalabs/rifa-api/internal/domain"
)

const exchangeKind = "topic"

// AMQPDispatcher publishes allocation summaries to a topic exchange so mail
// and SMS consumers can fan them out.
type AMQPDispatcher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAMQPDispatcher(url, exchange string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp.Dial -> %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("conn.Channel -> %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("ch.ExchangeDeclare -> %w", err)
	}

	return &AMQPDispatcher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, summary domain.AllocationSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	routingKey := "allocation.completed"
	if summary.Status == "failed" {
		routingKey = "allocation.failed"
	}

	err = d.channel.PublishWithContext(ctx,
		d.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("channel.PublishWithContext -> %w", err)
	}

	zap.L().Info("allocation summary dispatched",
		zap.String("routing_key", routingKey),
		zap.String("transaction_id", summary.TransactionID),
	)

	return nil
}

func (d *AMQPDispatcher) Close() {
	if d.channel != nil {
		d.channel.Close()
	}
	if d.conn != nil {
		d.conn.Close()
	}
}

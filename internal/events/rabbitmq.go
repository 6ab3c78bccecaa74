package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/bookcart/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQPublisher publishes order events to a RabbitMQ queue.
type RabbitMQPublisher struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queueDurable bool
}

// NewRabbitMQPublisher constructs a RabbitMQ publisher from config.
func NewRabbitMQPublisher(cfg config.RabbitMQConfig) (*RabbitMQPublisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQPublisher{
		conn:         conn,
		channel:      ch,
		queueDurable: cfg.QueueDurable,
	}, nil
}

// PublishOrderPlaced sends the event to the order queue, declaring the
// queue on first use.
func (r *RabbitMQPublisher) PublishOrderPlaced(ctx context.Context, event OrderPlaced) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	if _, err := r.channel.QueueDeclare(TopicOrderPlaced, r.queueDurable, false, false, false, nil); err != nil {
		return "", err
	}

	messageID := newMessageID()
	err = r.channel.PublishWithContext(ctx, "", TopicOrderPlaced, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   messageID,
		Headers: amqp.Table{
			"orderId": strconv.Itoa(event.OrderID),
			"userId":  strconv.Itoa(event.UserID),
		},
		Body: data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Close closes the underlying channel and connection.
func (r *RabbitMQPublisher) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}

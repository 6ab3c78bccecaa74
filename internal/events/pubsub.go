package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/bookcart/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubPublisher publishes order events through Google Cloud Pub/Sub.
type PubSubPublisher struct {
	client *pubsub.Client
}

// NewPubSubPublisher constructs a Pub/Sub publisher from config.
func NewPubSubPublisher(ctx context.Context, cfg config.PubSubConfig) (*PubSubPublisher, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}
	return &PubSubPublisher{client: client}, nil
}

// PublishOrderPlaced sends the event to the order topic, creating the topic
// on first use.
func (p *PubSubPublisher) PublishOrderPlaced(ctx context.Context, event OrderPlaced) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	topic, err := p.ensureTopic(ctx, TopicOrderPlaced)
	if err != nil {
		return "", err
	}

	result := topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"orderId": strconv.Itoa(event.OrderID),
			"userId":  strconv.Itoa(event.UserID),
		},
	})
	return result.Get(ctx)
}

// Close closes the underlying Pub/Sub client.
func (p *PubSubPublisher) Close() error {
	return p.client.Close()
}

func (p *PubSubPublisher) ensureTopic(ctx context.Context, name string) (*pubsub.Topic, error) {
	topic := p.client.Topic(name)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateTopic(ctx, name)
	}
	return topic, nil
}

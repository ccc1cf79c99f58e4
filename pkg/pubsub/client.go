package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

// ErrTopicMissing is returned when the notification topic has not been
// provisioned. Topics are managed by infrastructure, never created here.
var ErrTopicMissing = errors.New("pubsub topic does not exist")

// Client owns the Pub/Sub connection and the long-lived notification
// publisher. Publishers batch in the background, so they are created once.
type Client struct {
	raw           *pubsub.Client
	topic         string
	notifications *pubsub.Publisher
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	topic, err := TopicName(gcp.ProjectID, cfg.NotificationTopic)
	if err != nil {
		return nil, err
	}
	raw, err := pubsub.NewClient(ctx, strings.TrimSpace(gcp.ProjectID))
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	c := &Client{raw: raw, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	c.notifications = raw.Publisher(topic)
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub publisher ready")
	}
	return c, nil
}

// TopicName expands a short topic id into projects/<p>/topics/<id>. Full
// resource names pass through unchanged.
func TopicName(project, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("pubsub topic is required")
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic, nil
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return "", errors.New("gcp project id is required")
	}
	return "projects/" + project + "/topics/" + topic, nil
}

func (c *Client) NotificationPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.notifications
}

// Ping confirms the notification topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errors.New("pubsub client not initialized")
	}
	_, err := c.raw.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %s", ErrTopicMissing, c.topic)
	case err != nil:
		return fmt.Errorf("get topic %s: %w", c.topic, err)
	}
	return nil
}

// Close flushes pending publishes before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	if c.notifications != nil {
		c.notifications.Stop()
	}
	return c.raw.Close()
}

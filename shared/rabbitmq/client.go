package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	VHost             string
	QueuePrefix       string
	Topics            []string
	QueueDurable      bool
	QueueAutoDelete   bool
	RetryAttempts     int
	RetryInterval     time.Duration
	Heartbeat         time.Duration
	ConnectionTimeout time.Duration
	PrefetchCount     int
}

// Client represents a RabbitMQ client with one durable work queue per topic.
// Each topic also gets a companion retry queue: messages published there carry a
// per-message TTL and dead-letter back into the work queue once it elapses, which
// is how delayed retries are scheduled without blocking a worker.
type Client struct {
	config      *Config
	conn        *amqp.Connection
	channel     *amqp.Channel
	logger      *slog.Logger
	closeChan   chan *amqp.Error
	isConnected bool
}

// NewClient creates a new RabbitMQ client and declares all topic queues
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config:      config,
		logger:      logger,
		closeChan:   make(chan *amqp.Error),
		isConnected: false,
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}

	for attempt := 1; attempt <= c.config.RetryAttempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.config.RetryAttempts),
		)

		c.conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			c.logger.Info("Successfully connected to RabbitMQ")
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < c.config.RetryAttempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", c.config.RetryAttempts, err)
	}

	// Create channel
	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare work and retry queues for every topic
	if err := c.setup(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to declare queues: %w", err)
	}

	// Monitor connection
	c.closeChan = make(chan *amqp.Error)
	c.channel.NotifyClose(c.closeChan)
	c.isConnected = true

	c.logger.Info("RabbitMQ client initialized",
		slog.String("queue_prefix", c.config.QueuePrefix),
		slog.Int("topics", len(c.config.Topics)),
	)

	return nil
}

// setup declares a durable work queue and its retry queue for each topic
func (c *Client) setup() error {
	for _, topic := range c.config.Topics {
		workQueue := c.QueueName(topic)

		_, err := c.channel.QueueDeclare(
			workQueue,                // name
			c.config.QueueDurable,    // durable
			c.config.QueueAutoDelete, // auto-delete
			false,                    // exclusive
			false,                    // no-wait
			nil,                      // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", workQueue, err)
		}

		// Retry queue dead-letters straight back into the work queue via the
		// default exchange; per-message expiration controls the retry delay.
		_, err = c.channel.QueueDeclare(
			c.retryQueueName(topic),
			c.config.QueueDurable,
			c.config.QueueAutoDelete,
			false,
			false,
			amqp.Table{
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": workQueue,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to declare retry queue for %s: %w", topic, err)
		}
	}

	return nil
}

// QueueName returns the work queue name for a topic
func (c *Client) QueueName(topic string) string {
	return c.config.QueuePrefix + "." + topic
}

func (c *Client) retryQueueName(topic string) string {
	return c.QueueName(topic) + ".retry"
}

// Publish publishes a persistent message to a topic's work queue.
// A failed publish is surfaced to the caller: a job is never silently lost.
func (c *Client) Publish(ctx context.Context, topic string, body []byte) error {
	if !c.isConnected {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	err := c.channel.PublishWithContext(
		ctx,
		"",                 // exchange (default)
		c.QueueName(topic), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)

	if err != nil {
		c.logger.Error("Failed to publish message to RabbitMQ",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.String("topic", topic),
		slog.Int("body_size", len(body)),
	)

	return nil
}

// PublishRetry schedules a delayed redelivery by publishing to the topic's retry
// queue with the delay as per-message TTL.
func (c *Client) PublishRetry(ctx context.Context, topic string, body []byte, delay time.Duration) error {
	if !c.isConnected {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	err := c.channel.PublishWithContext(
		ctx,
		"",
		c.retryQueueName(topic),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
		},
	)

	if err != nil {
		c.logger.Error("Failed to publish retry message to RabbitMQ",
			slog.String("topic", topic),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish retry message: %w", err)
	}

	c.logger.Debug("Retry message published to RabbitMQ",
		slog.String("topic", topic),
		slog.Duration("delay", delay),
	)

	return nil
}

// Consume starts consuming messages from a topic's work queue with manual acks
func (c *Client) Consume(topic, consumerTag string) (<-chan amqp.Delivery, error) {
	if !c.isConnected {
		return nil, fmt.Errorf("not connected to RabbitMQ")
	}

	if c.config.PrefetchCount > 0 {
		if err := c.channel.Qos(c.config.PrefetchCount, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	messages, err := c.channel.Consume(
		c.QueueName(topic), // queue
		consumerTag,        // consumer tag
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,                // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	c.logger.Info("Started consuming messages from RabbitMQ",
		slog.String("queue", c.QueueName(topic)),
		slog.String("consumer_tag", consumerTag),
	)

	return messages, nil
}

// Close closes the RabbitMQ connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	c.isConnected = false

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}

// GetChannel returns the channel for advanced operations (ack/nack)
func (c *Client) GetChannel() *amqp.Channel {
	return c.channel
}

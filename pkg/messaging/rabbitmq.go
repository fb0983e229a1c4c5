package messaging

import (
	"fmt"
	"sync"
	"time"

	"github.com/medflow/medflow-dispensary/pkg/config"
	"github.com/medflow/medflow-dispensary/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const heartbeat = 10 * time.Second

// RabbitMQ holds the dashboard's single broker connection. Threshold events
// are fire-and-forget, so a lost connection is reported through Health and
// the logs rather than redialled.
type RabbitMQ struct {
	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	lastErr *amqp.Error
	logger  *logger.Logger
}

// New dials cfg.URL and opens the publishing channel.
func New(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Properties: amqp.Table{
			"connection_name": "medflow-dispensary-dashboard",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	r := &RabbitMQ{conn: conn, channel: ch, logger: log.WithComponent("rabbitmq")}
	go r.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))

	r.logger.Info().Msg("connected to RabbitMQ")
	return r, nil
}

// watch records why the broker dropped the connection. The channel is
// closed without a value on a clean Close.
func (r *RabbitMQ) watch(closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	if !ok || amqpErr == nil {
		return
	}
	r.mu.Lock()
	r.lastErr = amqpErr
	r.mu.Unlock()
	r.logger.Error().Err(amqpErr).Msg("RabbitMQ connection lost, threshold events will be dropped")
}

// Channel returns the publishing channel.
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Close closes the channel, then the connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil && !r.channel.IsClosed() {
		if err := r.channel.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close channel")
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// Health reports whether events can currently be published.
func (r *RabbitMQ) Health() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case r.conn == nil || r.conn.IsClosed():
		reason := "connection closed"
		if r.lastErr != nil {
			reason = r.lastErr.Reason
		}
		return map[string]string{"status": "down", "error": reason}
	case r.channel == nil || r.channel.IsClosed():
		return map[string]string{"status": "down", "error": "channel closed"}
	}
	return map[string]string{"status": "up"}
}

// DeclareExchange declares name as a durable topic exchange.
func (r *RabbitMQ) DeclareExchange(name string) error {
	return r.Channel().ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil)
}

// Package rabbitmq содержит подключение к брокеру, объявление очередей уведомлений,
// публикацию и потребление сообщений.
package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/streadway/amqp"
)

// Connect подключается к брокеру уведомлений. Сервисы стартуют раньше брокера,
// поэтому делается до retries попыток с паузой delay; каждая неудача пишется в лог.
// Ожидание прерывается отменой ctx.
func Connect(ctx context.Context, log *slog.Logger, url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	err := fmt.Errorf("no connection attempts")

	for attempt := 1; attempt <= retries; attempt++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			if attempt > 1 {
				log.Info("connected to broker", slog.Int("attempt", attempt))
			}
			return conn, nil
		}
		log.Warn("broker unavailable",
			slog.Int("attempt", attempt),
			slog.Int("retries", retries),
			slog.Duration("retry_in", delay),
			sl.Err(err),
		)
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал, объявляет exchange уведомлений и привязывает к нему очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}

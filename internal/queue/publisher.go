// README: RabbitMQ publisher used as the notification delivery sink.
// Messages are durable; errors are logged and returned so callers can
// ignore failures without interrupting the main flow.
package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"carpool/internal/modules/notify"
)

const notificationQueueName = "notification.dispatch"

type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// Emit publishes one notification to the notification.dispatch queue.
// The queue is declared durable so messages survive broker restarts.
func (p *Publisher) Emit(ctx context.Context, n notify.Notification) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("[queue] dial broker: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("[queue] channel open: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		notificationQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		log.Printf("[queue] queue declare: %v", err)
		return err
	}

	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",                    // default exchange
		notificationQueueName, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		pub,
	); err != nil {
		log.Printf("[queue] publish: %v", err)
		return err
	}
	return nil
}

package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

const DefaultEmailTopic = "notification.email"

// Kafka publishes email payloads to the notification topic; the notification
// service consumes them and does the actual delivery. From the reconciler's
// point of view publishing is fire-and-forget.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafka connects a sync producer with retries, since the broker may still
// be starting when this service comes up.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if topic == "" {
		topic = DefaultEmailTopic
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	var (
		producer sarama.SyncProducer
		err      error
	)
	for i := 1; i <= 5; i++ {
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.Printf("notifier: kafka producer connected to %v", brokers)
			return &Kafka{producer: producer, topic: topic}, nil
		}
		log.Printf("notifier: kafka connect failed (try %d/5): %v", i, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("notifier: connect kafka %v: %w", brokers, err)
}

type emailEvent struct {
	EventType string    `json:"event_type"`
	Data      emailData `json:"data"`
}

type emailData struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (k *Kafka) Send(ctx context.Context, address, subject, body string) error {
	payload, err := json.Marshal(emailEvent{
		EventType: "notification.email",
		Data:      emailData{To: address, Subject: subject, Body: body},
	})
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(address),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("notifier: publish email event: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}

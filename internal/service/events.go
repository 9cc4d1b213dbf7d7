package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quillmarket/order-service/internal/dto"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const publishMaxRetries = 3

// publishEvent hands an event to the notifier/ledger topic. Delivery errors
// are logged, never propagated: downstream messaging must not fail the
// lifecycle operation that produced the event.
func publishEvent(producer EventProducer, eventType string, key string, data interface{}) {
	kafkaMsg := dto.KafkaMessage{
		EventType: eventType,
		Data:      data,
	}

	jsonMsg, err := json.Marshal(kafkaMsg)
	if err != nil {
		log.Error().Err(err).Str("component", "publishEvent").Msg("")
		return
	}

	for i := 0; i < publishMaxRetries; i++ {
		_, err = producer.WriteMessages(kafka.Message{
			Key:   []byte(key),
			Value: jsonMsg,
		})
		if err == nil {
			return
		}
		log.Error().Err(err).Str("component", "publishEvent").Msg(fmt.Sprintf("attempt %d/%d", i+1, publishMaxRetries))
		time.Sleep(time.Second * time.Duration(i+1))
	}
}

package kafka

import (
	"context"

	"github.com/quillmarket/order-service/config"
	"github.com/segmentio/kafka-go"
)

var KafkaConn *kafka.Conn

func CreateKafkaProducer(config *config.Config) *kafka.Conn {
	conn, err := kafka.DialLeader(context.Background(), "tcp", config.KafkaConfig.BrokerAddress, config.KafkaConfig.BrokerTopic, 0)
	if err != nil {
		panic(err)
	}

	KafkaConn = conn
	return KafkaConn
}

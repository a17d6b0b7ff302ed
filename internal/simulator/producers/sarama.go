package producers

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/chrisdamba/coastersim/internal/models"
	log "github.com/sirupsen/logrus"
)

// SaramaProducer publishes ride events to Kafka. Topic names are prefixed
// with the configured kafka_topic_prefix.
type SaramaProducer struct {
	producer    sarama.SyncProducer
	topicPrefix string
}

func NewSaramaProducer(config *models.Config) (*SaramaProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // required by SyncProducer
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	saramaConfig.Net.DialTimeout = 30 * time.Second
	saramaConfig.Net.ReadTimeout = 30 * time.Second
	saramaConfig.Net.WriteTimeout = 30 * time.Second

	if config.SessionTimeoutMs > 0 {
		saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	} else {
		saramaConfig.Consumer.Group.Session.Timeout = 45 * time.Second
	}

	brokerList := strings.Split(config.KafkaBrokerList, ",")

	producer, err := sarama.NewSyncProducer(brokerList, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}

	log.WithField("brokers", brokerList).Info("Sarama producer created")
	return NewSaramaProducerWithClient(producer, config.KafkaTopicPrefix), nil
}

func NewSaramaProducerWithClient(producer sarama.SyncProducer, topicPrefix string) *SaramaProducer {
	return &SaramaProducer{producer: producer, topicPrefix: topicPrefix}
}

// Topic returns the Kafka topic a ride event topic is published to.
func (s *SaramaProducer) Topic(topic string) string {
	return s.topicPrefix + topic
}

func (s *SaramaProducer) WriteMessage(topic string, msg []byte) error {
	if s.producer == nil {
		return fmt.Errorf("sarama producer is not initialized")
	}

	partition, offset, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.Topic(topic),
		Value: sarama.ByteEncoder(msg),
	})
	if err != nil {
		log.WithError(err).WithField("topic", s.Topic(topic)).Warn("Failed to send message")
		return err
	}

	log.WithFields(log.Fields{
		"topic":     s.Topic(topic),
		"partition": partition,
		"offset":    offset,
	}).Trace("Message delivered")
	return nil
}

func (s *SaramaProducer) Close() error {
	if s.producer == nil {
		return nil
	}
	err := s.producer.Close()
	s.producer = nil
	return err
}

package producers

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaramaProducerPrefixesTopics(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)

	var gotTopic string
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		gotTopic = msg.Topic
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		if string(value) != `{"eventType":"board"}` {
			return errors.New("unexpected payload")
		}
		return nil
	})

	producer := NewSaramaProducerWithClient(mp, "coaster.")
	require.NoError(t, producer.WriteMessage("boarding_events", []byte(`{"eventType":"board"}`)))
	assert.Equal(t, "coaster.boarding_events", gotTopic)
	require.NoError(t, producer.Close())
}

func TestSaramaProducerReturnsSendErrors(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewSaramaProducerWithClient(mp, "")
	err := producer.WriteMessage("car_events", []byte(`{}`))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}

func TestSaramaProducerClosedProducer(t *testing.T) {
	producer := NewSaramaProducerWithClient(nil, "")
	assert.Error(t, producer.WriteMessage("car_events", []byte(`{}`)))
	assert.NoError(t, producer.Close())
}

//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/geo-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/observability"
	"github.com/couchcryptid/geo-risk-service/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-assessment-requests"
	testSinkTopic   = "test-assessments"
)

// assessedMessage holds a deserialized message read from the sink topic.
type assessedMessage struct {
	Assessment domain.Assessment
	Key        string
	Headers    map[string]string
}

// readAssessed reads a single message from the sink consumer and deserializes it.
func readAssessed(ctx context.Context, t *testing.T, consumer *kafkago.Reader) assessedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var a domain.Assessment
	require.NoError(t, json.Unmarshal(msg.Value, &a), "unmarshal sink message")

	return assessedMessage{Assessment: a, Key: string(msg.Key), Headers: headers}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func publish(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

func requestMessage(t *testing.T, req domain.AssessmentRequest) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(req.ID), Value: payload}
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader and
// kafka.Writer round-trip an assessment through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := pipelineConfig(broker, testSourceTopic, testSinkTopic, fmt.Sprintf("test-reader-%d", time.Now().UnixNano()))

	publish(ctx, t, broker, requestMessage(t, domain.AssessmentRequest{
		ID: "centro", Lat: -7.16, Lon: -78.52, TargetYear: 2050, Scenario: "low",
	}))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	batch, err := reader.ExtractBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("centro"), raw.Key)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	out, err := pipeline.NewTransformer(newDashboard(t), discardLogger()).Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.OutputEvent{out}))

	am := readAssessed(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, "centro", am.Key)
	assert.Equal(t, "High", am.Headers["category"])
	assert.Equal(t, "feature", am.Headers["source"])
	_, err = time.Parse(time.RFC3339, am.Headers["assessed_at"])
	assert.NoError(t, err, "assessed_at should be valid RFC3339")

	assert.Equal(t, "zone-1", am.Assessment.FeatureID)
	assert.Equal(t, 73.0, am.Assessment.Risk.Score)
	require.NotNil(t, am.Assessment.Projection)
	assert.Equal(t, domain.ScenarioLow, am.Assessment.Projection.Scenario)
	require.NotNil(t, am.Assessment.ProjectedRisk)
}

// TestPipelineEndToEnd wires Reader, Transformer and Writer against a real
// broker and checks every request is assessed exactly once.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := pipelineConfig(broker, testSourceTopic, testSinkTopic, fmt.Sprintf("test-pipeline-%d", time.Now().UnixNano()))

	const n = 40
	msgs := make([]kafkago.Message, 0, n)
	for i := range n {
		msgs = append(msgs, requestMessage(t, domain.AssessmentRequest{
			ID:  fmt.Sprintf("pt-%02d", i),
			Lat: -7.19 + float64(i)*0.002,
			Lon: -78.53 + float64(i)*0.001,
		}))
	}
	publish(ctx, t, broker, msgs...)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(newDashboard(t), discardLogger()), writer, discardLogger(), metrics, 16)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	seen := make(map[string]bool, n)
	sources := map[string]int{}
	for len(seen) < n {
		am := readAssessed(ctx, t, consumer)
		assert.False(t, seen[am.Key], "duplicate assessment %s", am.Key)
		seen[am.Key] = true
		sources[am.Headers["source"]]++

		assert.Equal(t, am.Key, am.Assessment.ID)
		assert.Contains(t, []domain.Category{domain.CategoryLow, domain.CategoryModerate, domain.CategoryHigh}, am.Assessment.Risk.Category)
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	assert.Positive(t, sources["synthetic"], "expected points outside every zone")
	require.NoError(t, p.CheckReadiness(ctx))
}

// TestPipelineTransformError verifies that malformed and out-of-range
// requests are skipped and the pipeline keeps assessing valid ones.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := pipelineConfig(broker, testSourceTopic, testSinkTopic, fmt.Sprintf("test-poison-%d", time.Now().UnixNano()))

	publish(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		requestMessage(t, domain.AssessmentRequest{ID: "polar", Lat: 123, Lon: 0}),
		requestMessage(t, domain.AssessmentRequest{ID: "good", Lat: -7.16, Lon: -78.52}),
	)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(newDashboard(t), discardLogger()), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	am := readAssessed(ctx, t, consumer)
	assert.Equal(t, "good", am.Key)

	// Verify no second message arrives.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}

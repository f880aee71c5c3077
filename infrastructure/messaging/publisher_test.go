package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"memgraph/domain/events"
	apperrors "memgraph/pkg/errors"
)

type fakePutEvents struct {
	inputs []*eventbridge.PutEventsInput
	output *eventbridge.PutEventsOutput
	err    error
}

func (f *fakePutEvents) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.output != nil {
		return f.output, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func savedEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewGraphSaved(fmt.Sprintf("/ws/%d", i), i, i, true, time.Unix(0, 0))
	}
	return out
}

func TestEventBridgePublisher_Batches(t *testing.T) {
	client := &fakePutEvents{}
	publisher := NewEventBridgePublisher(client, "memgraph-bus", zap.NewNop())

	require.NoError(t, publisher.Publish(context.Background(), savedEvents(12)...))

	require.Len(t, client.inputs, 2)
	assert.Len(t, client.inputs[0].Entries, 10)
	assert.Len(t, client.inputs[1].Entries, 2)

	entry := client.inputs[0].Entries[0]
	assert.Equal(t, "memgraph-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, events.SourceEngine, aws.ToString(entry.Source))
	assert.Equal(t, events.TypeGraphSaved, aws.ToString(entry.DetailType))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "/ws/0", detail["aggregate_id"])
	assert.Equal(t, true, detail["reindex"])
}

func TestEventBridgePublisher_Failures(t *testing.T) {
	client := &fakePutEvents{err: errors.New("throttled")}
	err := NewEventBridgePublisher(client, "bus", zap.NewNop()).Publish(context.Background(), savedEvents(1)...)
	assert.ErrorContains(t, err, "throttled")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))

	client = &fakePutEvents{output: &eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("InternalFailure")}},
	}}
	err = NewEventBridgePublisher(client, "bus", zap.NewNop()).Publish(context.Background(), savedEvents(1)...)
	assert.ErrorContains(t, err, "1 events failed")
}

func TestEventBridgePublisher_Empty(t *testing.T) {
	client := &fakePutEvents{}
	require.NoError(t, NewEventBridgePublisher(client, "bus", zap.NewNop()).Publish(context.Background()))
	assert.Empty(t, client.inputs)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	publisher := NewLogPublisher(zap.New(core))

	require.NoError(t, publisher.Publish(context.Background(), savedEvents(2)...))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, events.TypeGraphSaved, logs.All()[0].ContextMap()["eventType"])
}

func TestFanoutPublisher_ContinuesPastFailures(t *testing.T) {
	failing := &fakePutEvents{err: errors.New("bus down")}
	core, logs := observer.New(zap.InfoLevel)

	publisher := NewFanoutPublisher(
		NewEventBridgePublisher(failing, "bus", zap.NewNop()),
		NewLogPublisher(zap.New(core)),
	)

	err := publisher.Publish(context.Background(), savedEvents(3)...)
	assert.ErrorContains(t, err, "bus down")
	assert.Len(t, failing.inputs, 1)
	assert.Equal(t, 3, logs.Len())
}

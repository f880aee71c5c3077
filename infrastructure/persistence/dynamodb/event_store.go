package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"memgraph/domain/events"
)

const (
	// DynamoDB limits BatchWriteItem to 25 requests per call
	writeBatchSize = 25

	maxWriteAttempts    = 4
	defaultWriteBackoff = 50 * time.Millisecond

	// fixed width so sort keys order chronologically
	sortTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// EventRecord is how a domain event is stored
type EventRecord struct {
	PK          string `dynamodbav:"PK" json:"-"` // EVENTS#<workspace>
	SK          string `dynamodbav:"SK" json:"-"` // EVENT#<timestamp>#<event_id>
	EventID     string `dynamodbav:"EventID" json:"eventId"`
	EventType   string `dynamodbav:"EventType" json:"eventType"`
	AggregateID string `dynamodbav:"AggregateID" json:"workspace"`
	Detail      string `dynamodbav:"Detail" json:"detail"`
	Timestamp   string `dynamodbav:"Timestamp" json:"timestamp"`
	Version     int    `dynamodbav:"Version" json:"version"`
	TTL         int64  `dynamodbav:"TTL,omitempty" json:"-"`
}

// EventStore appends domain events to a DynamoDB table. It implements
// ports.EventPublisher so it can sit next to the event bus.
type EventStore struct {
	client    API
	tableName string
	retention time.Duration
	backoff   time.Duration
	newID     func() string
	logger    *zap.Logger
}

// NewEventStore creates an event log. A positive retention sets the item
// TTL; zero keeps events forever.
func NewEventStore(client API, tableName string, retention time.Duration, logger *zap.Logger) *EventStore {
	return &EventStore{
		client:    client,
		tableName: tableName,
		retention: retention,
		backoff:   defaultWriteBackoff,
		newID:     uuid.NewString,
		logger:    logger,
	}
}

func eventsKey(workspace string) string {
	return "EVENTS#" + workspace
}

// Publish implements ports.EventPublisher
func (es *EventStore) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := es.eventToRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	for i := 0; i < len(writeRequests); i += writeBatchSize {
		end := i + writeBatchSize
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		if err := es.writeBatch(ctx, writeRequests[i:end]); err != nil {
			return err
		}
	}

	es.logger.Debug("Events appended to DynamoDB",
		zap.Int("count", len(writeRequests)),
		zap.String("table", es.tableName))
	return nil
}

// writeBatch retries unprocessed items with exponential backoff
func (es *EventStore) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	delay := es.backoff
	for attempt := 1; ; attempt++ {
		result, err := es.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				es.tableName: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to write events batch: %w", err)
		}

		requests = result.UnprocessedItems[es.tableName]
		if len(requests) == 0 {
			return nil
		}
		if attempt == maxWriteAttempts {
			return fmt.Errorf("failed to write %d events after %d attempts", len(requests), attempt)
		}

		es.logger.Debug("Retrying unprocessed events",
			zap.Int("count", len(requests)),
			zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// Recent returns up to limit events of a workspace, newest first
func (es *EventStore) Recent(ctx context.Context, workspace string, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: eventsKey(workspace)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	records := make([]EventRecord, 0, limit)
	for len(records) < limit {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query events: %w", err)
		}

		var page []EventRecord
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event records: %w", err)
		}
		records = append(records, page...)

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (es *EventStore) eventToRecord(event events.DomainEvent) (EventRecord, error) {
	detail, err := json.Marshal(event)
	if err != nil {
		return EventRecord{}, err
	}

	id := es.newID()
	ts := event.GetTimestamp().UTC()
	record := EventRecord{
		PK:          eventsKey(event.GetAggregateID()),
		SK:          fmt.Sprintf("EVENT#%s#%s", ts.Format(sortTimeLayout), id),
		EventID:     id,
		EventType:   event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		Detail:      string(detail),
		Timestamp:   ts.Format(time.RFC3339Nano),
		Version:     event.GetVersion(),
	}
	if es.retention > 0 {
		record.TTL = ts.Add(es.retention).Unix()
	}
	return record, nil
}

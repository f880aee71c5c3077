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
	"go.uber.org/zap"

	"memgraph/application/ports"
	"memgraph/domain/core/aggregates"
)

const graphSortKey = "GRAPH"

// graphItem is the DynamoDB item holding one workspace's canonical graph.
// Body is the canonical JSON document, byte for byte.
type graphItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Workspace string `dynamodbav:"Workspace"`
	Body      string `dynamodbav:"Body"`
	NodeCount int    `dynamodbav:"NodeCount"`
	EdgeCount int    `dynamodbav:"EdgeCount"`
	Version   int    `dynamodbav:"Version"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// GraphStore implements ports.GraphStore with the canonical graph in a
// DynamoDB table. The mirror document stays in the workspace, written by
// the wrapped store. Saves are unconditional puts, so concurrent saves are
// last-write-wins like the file store.
type GraphStore struct {
	client    API
	tableName string
	files     ports.GraphStore
	logger    *zap.Logger
}

// NewGraphStore creates a table-backed graph store. files supplies the
// mirror writer and the workspace paths.
func NewGraphStore(client API, tableName string, files ports.GraphStore, logger *zap.Logger) *GraphStore {
	return &GraphStore{
		client:    client,
		tableName: tableName,
		files:     files,
		logger:    logger,
	}
}

func (s *GraphStore) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: workspaceKey(s.files.Paths().Workspace)},
		"SK": &types.AttributeValueMemberS{Value: graphSortKey},
	}
}

// Load implements ports.GraphStore
func (s *GraphStore) Load(ctx context.Context) ([]byte, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get graph: %w", err)
	}
	if result.Item == nil {
		return nil, ports.ErrGraphNotFound
	}

	var item graphItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph item: %w", err)
	}
	return []byte(item.Body), nil
}

// Save implements ports.GraphStore
func (s *GraphStore) Save(ctx context.Context, graph *aggregates.KnowledgeGraph) error {
	body, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}

	workspace := s.files.Paths().Workspace
	item := graphItem{
		PK:        workspaceKey(workspace),
		SK:        graphSortKey,
		Workspace: workspace,
		Body:      string(body),
		NodeCount: len(graph.Nodes),
		EdgeCount: len(graph.Edges),
		Version:   graph.Version,
		UpdatedAt: graph.UpdatedAt.UTC().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	s.logger.Debug("Saved graph to DynamoDB",
		zap.String("table", s.tableName),
		zap.String("workspace", workspace),
		zap.Int("nodeCount", item.NodeCount),
		zap.Int("edgeCount", item.EdgeCount),
	)
	return nil
}

// SaveMirror implements ports.GraphStore
func (s *GraphStore) SaveMirror(ctx context.Context, content string) error {
	return s.files.SaveMirror(ctx, content)
}

// Paths implements ports.GraphStore. The graph path names the table.
func (s *GraphStore) Paths() ports.WorkspacePaths {
	paths := s.files.Paths()
	paths.Graph = "dynamodb://" + s.tableName
	return paths
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoAPI is the subset of the DynamoDB client DynamoStore uses.
type dynamoAPI interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore implements Store using DynamoDB. Each preference is one item
// keyed by PK = NS#<namespace>, SK = KEY#<key>.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
}

// NewDynamoStore creates a DynamoDB client and returns a DynamoStore.
func NewDynamoStore(ctx context.Context, cfg Config) (*DynamoStore, error) {
	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.AWSRegion))

	if cfg.DynamoEndpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.DynamoEndpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return newDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTableName), nil
}

func newDynamoStore(client dynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func (s *DynamoStore) pk(namespace string) string {
	return "NS#" + namespace
}

func (s *DynamoStore) sk(key string) string {
	return "KEY#" + key
}

func (s *DynamoStore) itemKey(namespace, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: s.pk(namespace)},
		"SK": &types.AttributeValueMemberS{Value: s.sk(key)},
	}
}

// query returns every item in namespace, following pagination.
func (s *DynamoStore) query(ctx context.Context, namespace string) ([]map[string]types.AttributeValue, error) {
	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk"),
		ConsistentRead:         aws.Bool(true),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: s.pk(namespace)},
		},
	})

	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("Query: %w", err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (s *DynamoStore) GetAll(ctx context.Context, namespace string) (map[string]string, error) {
	items, err := s.query(ctx, namespace)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, nil
	}

	result := make(map[string]string, len(items))
	for _, item := range items {
		key, value, ok := unmarshalPref(item)
		if !ok {
			continue
		}
		result[key] = value
	}
	return result, nil
}

func (s *DynamoStore) Get(ctx context.Context, namespace string, key string) (string, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.itemKey(namespace, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("GetItem: %w", err)
	}

	if out.Item == nil {
		return "", false, nil
	}

	_, value, ok := unmarshalPref(out.Item)
	return value, ok, nil
}

func (s *DynamoStore) Put(ctx context.Context, namespace string, key string, value string) error {
	item := s.itemKey(namespace, key)
	item["value"] = &types.AttributeValueMemberS{Value: value}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem: %w", err)
	}

	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, namespace string, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       s.itemKey(namespace, key),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem: %w", err)
	}

	return nil
}

func (s *DynamoStore) Close() error { return nil }

// unmarshalPref extracts the key and value from a preference item.
func unmarshalPref(item map[string]types.AttributeValue) (string, string, bool) {
	skAttr, ok := item["SK"].(*types.AttributeValueMemberS)
	if !ok {
		return "", "", false
	}

	valAttr, ok := item["value"].(*types.AttributeValueMemberS)
	if !ok {
		return "", "", false
	}

	return strings.TrimPrefix(skAttr.Value, "KEY#"), valAttr.Value, true
}

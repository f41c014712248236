package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	apperrors "projectgraph/pkg/errors"
)

const dynamoBackend = "dynamodb"

// DynamoDBAPI is the subset of the DynamoDB client the store calls.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// kvItem is the table row; Key is the table's partition key.
type kvItem struct {
	Key       string `dynamodbav:"Key"`
	Value     string `dynamodbav:"Value"`
	UpdatedAt string `dynamodbav:"UpdatedAt,omitempty"`
}

// BreakerConfig tunes the circuit breaker around DynamoDB calls.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips at 80% failures over at least five requests.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// DynamoDBStore is a KeyValueStore over a single DynamoDB table.
type DynamoDBStore struct {
	client  DynamoDBAPI
	table   string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewDynamoDBStore wraps client. A nil logger is replaced with a no-op logger.
func NewDynamoDBStore(client DynamoDBAPI, table string, cfg BreakerConfig, logger *zap.Logger) *DynamoDBStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kvstore-" + table,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &DynamoDBStore{client: client, table: table, breaker: breaker, logger: logger}
}

func (d *DynamoDBStore) execute(op string, fn func() (any, error)) (any, error) {
	out, err := d.breaker.Execute(fn)
	if err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

func (d *DynamoDBStore) key(k string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"Key": &types.AttributeValueMemberS{Value: k}}
}

func (d *DynamoDBStore) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := d.execute("get", func() (any, error) {
		return d.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(d.table),
			Key:            d.key(key),
			ConsistentRead: aws.Bool(true),
		})
	})
	if err != nil {
		return "", false, err
	}
	res := out.(*dynamodb.GetItemOutput)
	if len(res.Item) == 0 {
		return "", false, nil
	}
	var item kvItem
	if err := attributevalue.UnmarshalMap(res.Item, &item); err != nil {
		return "", false, apperrors.NewPersistenceError(dynamoBackend, "get", err)
	}
	return item.Value, true, nil
}

func (d *DynamoDBStore) Set(ctx context.Context, key, value string) error {
	av, err := attributevalue.MarshalMap(kvItem{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return apperrors.NewPersistenceError(dynamoBackend, "set", err)
	}
	_, err = d.execute("set", func() (any, error) {
		return d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(d.table),
			Item:      av,
		})
	})
	return err
}

func (d *DynamoDBStore) Delete(ctx context.Context, key string) error {
	_, err := d.execute("delete", func() (any, error) {
		return d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(d.table),
			Key:       d.key(key),
		})
	})
	return err
}

// Keys scans the table with a begins_with filter, following pagination.
func (d *DynamoDBStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("Key").BeginsWith(prefix)).
		WithProjection(expression.NamesList(expression.Name("Key"))).
		Build()
	if err != nil {
		return nil, apperrors.NewPersistenceError(dynamoBackend, "keys", err)
	}

	var (
		keys  []string
		start map[string]types.AttributeValue
	)
	for {
		out, err := d.execute("keys", func() (any, error) {
			return d.client.Scan(ctx, &dynamodb.ScanInput{
				TableName:                 aws.String(d.table),
				FilterExpression:          expr.Filter(),
				ProjectionExpression:      expr.Projection(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				ExclusiveStartKey:         start,
				ConsistentRead:            aws.Bool(true),
			})
		})
		if err != nil {
			return nil, err
		}
		page := out.(*dynamodb.ScanOutput)
		var items []kvItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, apperrors.NewPersistenceError(dynamoBackend, "keys", err)
		}
		for _, it := range items {
			keys = append(keys, it.Key)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	sort.Strings(keys)
	return keys, nil
}

// classify maps breaker and DynamoDB API failures to persistence errors.
func classify(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewPersistenceError(dynamoBackend, op, err).
			WithMessage("dynamodb temporarily unavailable").
			WithRetryable(true)
	}

	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return apperrors.NewPersistenceError(dynamoBackend, op, err)
	}
	perr := apperrors.NewPersistenceError(dynamoBackend, op, err).
		WithDetail("aws_code", ae.ErrorCode())
	switch ae.ErrorCode() {
	case "ProvisionedThroughputExceededException", "RequestLimitExceeded",
		"ThrottlingException", "InternalServerError", "ServiceUnavailable":
		return perr.WithRetryable(true)
	case "ResourceNotFoundException":
		return perr.WithMessage(fmt.Sprintf("dynamodb table missing: %s", ae.ErrorMessage())).
			WithRetryable(false)
	default:
		return perr.WithRetryable(false)
	}
}

var _ KeyValueStore = (*DynamoDBStore)(nil)

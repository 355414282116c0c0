package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/lattice/internal/shard"
)

// batchGetLimit is the DynamoDB BatchGetItem per-request item cap.
const batchGetLimit = 100

// transactWriteLimit is the DynamoDB TransactWriteItems per-request cap.
const transactWriteLimit = 100

// linkEdge is one edge item in the links table.
type linkEdge struct {
	PK     string `dynamodbav:"pk"`
	SK     string `dynamodbav:"sk"`
	Tag    string `dynamodbav:"tag"`
	Target string `dynamodbav:"target"`
}

// Dynamo is a Store backed by two DynamoDB tables: a data table keyed by
// (bucket, key) holding record bodies, and a links table holding one item
// per link edge under a sharded owner partition key.
type Dynamo struct {
	client *dynamodb.Client
	config Config
}

// NewDynamo creates a DynamoDB-backed Store.
func NewDynamo(client *dynamodb.Client, config Config) *Dynamo {
	config.validate()
	return &Dynamo{
		client: client,
		config: config,
	}
}

func (d *Dynamo) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.config.DataTable),
		Key:       recordKey(bucket, key),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	body, ok := result.Item["body"].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("lattice: record %s/%s has no body attribute", bucket, key)
	}
	return body.Value, nil
}

func (d *Dynamo) Put(ctx context.Context, bucket, key string, body []byte) error {
	if bucket == "" {
		return ErrBadBucket
	}
	if key == "" {
		return ErrBadKey
	}

	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.config.DataTable),
		Item: map[string]types.AttributeValue{
			"pk":   &types.AttributeValueMemberS{Value: bucket},
			"sk":   &types.AttributeValueMemberS{Value: key},
			"body": &types.AttributeValueMemberB{Value: body},
		},
	})
	return err
}

func (d *Dynamo) Delete(ctx context.Context, bucket, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.config.DataTable),
		Key:       recordKey(bucket, key),
	})
	return err
}

func (d *Dynamo) GenerateKey(ctx context.Context, bucket string) (string, error) {
	return uuid.NewString(), nil
}

// GetMany implements BatchStore via BatchGetItem, chunked at the service
// limit and retrying unprocessed keys until the batch drains.
func (d *Dynamo) GetMany(ctx context.Context, bucket string, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))

	for start := 0; start < len(keys); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(keys) {
			end = len(keys)
		}

		requestKeys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, key := range keys[start:end] {
			requestKeys = append(requestKeys, recordKey(bucket, key))
		}

		pending := map[string]types.KeysAndAttributes{
			d.config.DataTable: {Keys: requestKeys},
		}
		for len(pending) > 0 {
			out, err := d.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return nil, err
			}
			for _, item := range out.Responses[d.config.DataTable] {
				sk, ok := item["sk"].(*types.AttributeValueMemberS)
				if !ok {
					continue
				}
				if body, ok := item["body"].(*types.AttributeValueMemberB); ok {
					result[sk.Value] = body.Value
				}
			}
			pending = out.UnprocessedKeys
		}
	}

	return result, nil
}

// SetLinks replaces the tag's edges by diffing the current edge set against
// targets and applying the delta in transactional batches.
func (d *Dynamo) SetLinks(ctx context.Context, bucket, key, tag string, targets []string) error {
	current, err := d.GetLinks(ctx, bucket, key, tag)
	if err != nil {
		return err
	}

	desired := make(map[string]bool, len(targets))
	for _, t := range targets {
		desired[t] = true
	}
	existing := make(map[string]bool, len(current))
	for _, t := range current {
		existing[t] = true
	}

	ownerRef := shard.OwnerRef(bucket, key)
	var items []types.TransactWriteItem

	for _, t := range current {
		if desired[t] {
			continue
		}
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(d.config.LinksTable),
				Key: map[string]types.AttributeValue{
					"pk": &types.AttributeValueMemberS{Value: shard.LinkPK(ownerRef, t, d.config.NumShards)},
					"sk": &types.AttributeValueMemberS{Value: edgeSK(tag, t)},
				},
			},
		})
	}

	for _, t := range targets {
		if existing[t] {
			continue
		}
		item, err := attributevalue.MarshalMap(linkEdge{
			PK:     shard.LinkPK(ownerRef, t, d.config.NumShards),
			SK:     edgeSK(tag, t),
			Tag:    tag,
			Target: t,
		})
		if err != nil {
			return fmt.Errorf("marshal edge: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(d.config.LinksTable),
				Item:      item,
			},
		})
	}

	for start := 0; start < len(items); start += transactWriteLimit {
		end := start + transactWriteLimit
		if end > len(items) {
			end = len(items)
		}
		_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items[start:end],
		})
		if err != nil {
			return mapTransactionError(err)
		}
	}

	return nil
}

// GetLinks queries the links table for all edges tagged tag. With a single
// shard this is one query; with more, the shards are queried concurrently
// and the results merged.
func (d *Dynamo) GetLinks(ctx context.Context, bucket, key, tag string) ([]string, error) {
	ownerRef := shard.OwnerRef(bucket, key)
	numShards := d.config.NumShards
	if numShards < 1 {
		numShards = 1
	}

	// Fast path for single shard (default)
	if numShards == 1 {
		return d.queryLinksShard(ctx, shard.ShardPK(ownerRef, 0), tag)
	}

	var mu sync.Mutex
	var all []string
	var wg sync.WaitGroup
	errs := make(chan error, numShards)

	for shardNum := 0; shardNum < numShards; shardNum++ {
		wg.Add(1)
		go func(shardNum int) {
			defer wg.Done()

			targets, err := d.queryLinksShard(ctx, shard.ShardPK(ownerRef, shardNum), tag)
			if err != nil {
				errs <- fmt.Errorf("shard %02x: %w", shardNum, err)
				return
			}

			mu.Lock()
			all = append(all, targets...)
			mu.Unlock()
		}(shardNum)
	}

	go func() {
		wg.Wait()
		close(errs)
	}()

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return all, nil
}

func (d *Dynamo) queryLinksShard(ctx context.Context, shardPK, tag string) ([]string, error) {
	var targets []string

	paginator := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.config.LinksTable),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :tag)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  &types.AttributeValueMemberS{Value: shardPK},
			":tag": &types.AttributeValueMemberS{Value: tag + "#"},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if v, ok := item["target"].(*types.AttributeValueMemberS); ok {
				targets = append(targets, v.Value)
			}
		}
	}

	return targets, nil
}

// recordKey builds the data table primary key for (bucket, key).
func recordKey(bucket, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: bucket},
		"sk": &types.AttributeValueMemberS{Value: key},
	}
}

// edgeSK builds the links table sort key for one edge.
func edgeSK(tag, target string) string {
	return fmt.Sprintf("%s#%s", tag, target)
}

// mapTransactionError flattens transaction cancellations to their cause.
func mapTransactionError(err error) error {
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code != "None" {
				return fmt.Errorf("lattice: link write canceled (%s): %w", *reason.Code, err)
			}
		}
	}
	return err
}

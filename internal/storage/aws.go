package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// AWSArchive mirrors run snapshots to S3 and keeps run history in DynamoDB.
type AWSArchive struct {
	dynamoDB  *dynamodb.Client
	s3Client  *s3.Client
	tableName string
	bucket    string
	region    string
}

// DynamoDBItem represents an item stored in DynamoDB
type DynamoDBItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// NewAWSArchive creates an archive backed by S3 and DynamoDB.
func NewAWSArchive(ctx context.Context, tableName, bucket, region, profile string) (*AWSArchive, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &AWSArchive{
		dynamoDB:  dynamodb.NewFromConfig(cfg),
		s3Client:  s3.NewFromConfig(cfg),
		tableName: tableName,
		bucket:    bucket,
		region:    region,
	}, nil
}

// RegisterRun writes the run summary into the history table, keyed by
// start time. Entries expire after a year.
func (a *AWSArchive) RegisterRun(ctx context.Context, summary *domain.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}

	item := DynamoDBItem{
		PK:        "RUN",
		SK:        summary.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Data:      string(data),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TTL:       time.Now().Add(365 * 24 * time.Hour).Unix(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}

	_, err = a.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}

	return nil
}

// RunsBetween queries the history registry for runs started inside the
// window, newest first.
func (a *AWSArchive) RunsBetween(ctx context.Context, from, to time.Time) ([]domain.RunSummary, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}

	result, err := a.dynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(a.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: "RUN"},
			":from": &types.AttributeValueMemberS{Value: from.UTC().Format("2006-01-02T15:04:05Z")},
			":to":   &types.AttributeValueMemberS{Value: to.UTC().Format("2006-01-02T15:04:05Z")},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("querying DynamoDB: %w", err)
	}

	var runs []domain.RunSummary
	for _, item := range result.Items {
		var dbItem DynamoDBItem
		if err := attributevalue.UnmarshalMap(item, &dbItem); err != nil {
			continue
		}
		var summary domain.RunSummary
		if err := json.Unmarshal([]byte(dbItem.Data), &summary); err != nil {
			continue
		}
		runs = append(runs, summary)
	}

	return runs, nil
}

// SaveToS3 saves data to S3 as indented JSON.
func (a *AWSArchive) SaveToS3(ctx context.Context, key string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling data: %w", err)
	}

	_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(jsonData),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}

	return nil
}

// GetFromS3 retrieves data from S3.
func (a *AWSArchive) GetFromS3(ctx context.Context, key string, target interface{}) error {
	result, err := a.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("getting object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("reading S3 object body: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshaling S3 data: %w", err)
	}

	return nil
}

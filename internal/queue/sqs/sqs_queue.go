package sqs

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"cloudsync/internal/config"
	"cloudsync/internal/port"
)

type sqsQueue struct {
	client   *sqs.Client
	queueURL string
	wait     time.Duration
}

// NewSQSQueue creates an SQS-backed MessageQueue. It reuses the storage
// credentials, as the queue receives that bucket's notifications.
func NewSQSQueue(ctx context.Context, syncCfg *config.SyncConfig, storageCfg *config.StorageConfig) (port.MessageQueue, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(syncCfg.QueueRegion))

	if storageCfg.AccessKey != "" && storageCfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storageCfg.AccessKey, storageCfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &sqsQueue{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: syncCfg.QueueURL,
		wait:     syncCfg.WaitTime,
	}, nil
}

func (q *sqsQueue) Receive(ctx context.Context, max int) ([]port.QueueMessage, error) {
	result, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(q.wait / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	msgs := make([]port.QueueMessage, 0, len(result.Messages))
	for _, m := range result.Messages {
		msgs = append(msgs, port.QueueMessage{
			ID:            aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          []byte(aws.ToString(m.Body)),
		})
	}
	return msgs, nil
}

func (q *sqsQueue) Delete(ctx context.Context, msg port.QueueMessage) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("sqs delete %s: %w", msg.ID, err)
	}
	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sirupsen/logrus"
)

// SQSAPI is the subset of the SQS client used here.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(string(task.Kind))},
		},
	})
	if err != nil {
		return fmt.Errorf("sqs SendMessage: %w", err)
	}
	return nil
}

// SQSConsumer long-polls the task queue. A message is deleted only after the
// handler succeeds; failures reappear after the visibility timeout.
type SQSConsumer struct {
	client   SQSAPI
	queueURL string
	handler  Handler
	logger   *logrus.Logger
	// RetryDelay is how long to back off after a failed receive.
	RetryDelay time.Duration
}

func NewSQSConsumer(client SQSAPI, queueURL string, handler Handler, logger *logrus.Logger) *SQSConsumer {
	return &SQSConsumer{client: client, queueURL: queueURL, handler: handler, logger: logger, RetryDelay: 5 * time.Second}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	c.logger.WithField("queue_url", c.queueURL).Info("SQS consumer listening")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("SQS consumer stopped")
			return
		default:
		}

		result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   120,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.WithError(err).Error("SQS receive failed")
			select {
			case <-time.After(c.RetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, message := range result.Messages {
			c.process(ctx, message)
		}
	}
}

func (c *SQSConsumer) process(ctx context.Context, message types.Message) {
	if message.Body == nil {
		c.deleteMessage(ctx, message.ReceiptHandle)
		return
	}

	var task Task
	if err := json.Unmarshal([]byte(*message.Body), &task); err != nil {
		c.logger.WithError(err).WithField("message_id", aws.ToString(message.MessageId)).Warn("dropping undecodable task")
		c.deleteMessage(ctx, message.ReceiptHandle)
		return
	}

	if err := c.handler.HandleTask(ctx, task); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{"task_id": task.ID, "kind": task.Kind}).
			Error("task failed, leaving message for redelivery")
		return
	}
	c.deleteMessage(ctx, message.ReceiptHandle)
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.logger.WithError(err).Error("SQS delete failed")
	}
}

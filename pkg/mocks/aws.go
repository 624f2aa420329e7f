package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/stretchr/testify/mock"
)

// SNSMock is a mock for publishing to a topic by feed
type SNSMock struct {
	mock.Mock
}

// Publish mocks publishing a message
func (m *SNSMock) Publish(ctx context.Context, message, topicArn, feed string) error {
	args := m.Called(message, topicArn, feed)
	return args.Error(0)
}

// SNSAPIMock is a mock for the AWS SNS client. Only publishing is implemented.
type SNSAPIMock struct {
	snsiface.SNSAPI
	mock.Mock
}

// PublishWithContext mocks the SNS publish call
func (m *SNSAPIMock) PublishWithContext(ctx aws.Context, input *sns.PublishInput, opts ...request.Option) (*sns.PublishOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

// S3APIMock is a mock for the AWS S3 client. Only uploads are implemented.
type S3APIMock struct {
	s3iface.S3API
	mock.Mock
}

// PutObjectWithContext mocks an S3 upload
func (m *S3APIMock) PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	args := m.Called(input)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

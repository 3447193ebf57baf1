package aws

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

func TestSNSClient_Alert(t *testing.T) {
	pub := &fakePublisher{}
	c := NewSNSClientWithPublisher(pub, "arn:aws:sns:eu-central-1:123:rag-alerts")

	require.NoError(t, c.Alert(context.Background(), strings.Repeat("s", 150), "all providers failed"))

	require.Len(t, pub.inputs, 1)
	assert.Equal(t, "arn:aws:sns:eu-central-1:123:rag-alerts", *pub.inputs[0].TopicArn)
	assert.Len(t, *pub.inputs[0].Subject, 100)
	assert.Equal(t, "all providers failed", *pub.inputs[0].Message)
}

func TestSNSClient_AlertError(t *testing.T) {
	c := NewSNSClientWithPublisher(&fakePublisher{err: errors.New("throttled")}, "arn")

	err := c.Alert(context.Background(), "s", "m")
	assert.ErrorContains(t, err, "throttled")
}

package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
)

type fakeSender struct {
	sent  []tgbotapi.MessageConfig
	err   error
	block chan struct{}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.block != nil {
		<-f.block
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, f.err
}

type fakePublisher struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, f.err
}

func testLead() Lead {
	req := model.ConversationRequest{
		Message:     "meu whats é (11) 91234-5678",
		UserID:      "u1",
		Language:    model.LangPortuguese,
		CurrentPage: "/contact",
	}
	return NewLead("req-1", req, []string{"(11) 91234-5678"})
}

func TestLeadText(t *testing.T) {
	text := testLead().Text()
	assert.Contains(t, text, "Contact: (11) 91234-5678")
	assert.Contains(t, text, "Page: /contact")
	assert.Contains(t, text, "meu whats é")
}

func TestTelegramNotifier(t *testing.T) {
	fs := &fakeSender{}
	n := &TelegramNotifier{s: fs, chatID: 42}

	require.NoError(t, n.Notify(context.Background(), testLead()))
	require.Len(t, fs.sent, 1)
	assert.Equal(t, int64(42), fs.sent[0].ChatID)
	assert.Contains(t, fs.sent[0].Text, "(11) 91234-5678")

	fs.err = errors.New("forbidden")
	assert.ErrorContains(t, n.Notify(context.Background(), testLead()), "forbidden")
}

func TestTelegramNotifierHonoursDeadline(t *testing.T) {
	fs := &fakeSender{block: make(chan struct{})}
	defer close(fs.block)
	n := NewInstrumented(&TelegramNotifier{s: fs, chatID: 42}, ChannelTelegram, 20*time.Millisecond)

	err := n.Notify(context.Background(), testLead())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSNSNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := &SNSNotifier{client: pub, topicARN: "arn:aws:sns:us-east-1:123:leads"}

	require.NoError(t, n.Notify(context.Background(), testLead()))
	require.Len(t, pub.inputs, 1)
	in := pub.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123:leads", aws.ToString(in.TopicArn))
	assert.Contains(t, aws.ToString(in.Message), "(11) 91234-5678")
	assert.Equal(t, "/contact", aws.ToString(in.MessageAttributes["page"].StringValue))

	pub.err = errors.New("throttled")
	assert.ErrorContains(t, n.Notify(context.Background(), testLead()), "throttled")
}

func TestNewValidatesChannelConfig(t *testing.T) {
	ctx := context.Background()

	n, err := New(ctx, model.NotifyConfig{Channel: ChannelLog}, time.Second)
	require.NoError(t, err)
	assert.NoError(t, n.Notify(ctx, testLead()))

	_, err = New(ctx, model.NotifyConfig{Channel: ChannelTelegram}, time.Second)
	assert.ErrorIs(t, err, errx.ErrConfigurationMissing)

	_, err = New(ctx, model.NotifyConfig{Channel: ChannelSNS}, time.Second)
	assert.ErrorIs(t, err, errx.ErrConfigurationMissing)

	_, err = New(ctx, model.NotifyConfig{Channel: "pigeon"}, time.Second)
	assert.Error(t, err)
}

package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/meditrack/pkg/logging"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: " ", FromEmail: "test@example.com"}, nil)
	assert.Nil(t, sender)
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "test@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "MediTrack", sender.fromName)
}

type fakeSendGrid struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSendGrid) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendGridResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, email)
	return &sendGridResponse{StatusCode: f.status}, nil
}

func TestSendGridSender_Send(t *testing.T) {
	fake := &fakeSendGrid{status: 202}
	sender := &SendGridSender{client: fake, fromEmail: "alerts@clinic.test", fromName: "Clinic", logger: logging.Discard()}

	err := sender.Send(context.Background(), EmailMessage{To: "ops@clinic.test", Subject: "Low stock", Body: "text"})

	require.NoError(t, err)
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "Low stock", fake.sent[0].Subject)
	assert.Equal(t, "alerts@clinic.test", fake.sent[0].From.Address)
}

func TestSendGridSender_ErrorStatus(t *testing.T) {
	sender := &SendGridSender{client: &fakeSendGrid{status: 401}, logger: logging.Discard()}
	err := sender.Send(context.Background(), EmailMessage{To: "ops@clinic.test"})
	assert.ErrorContains(t, err, "status 401")

	sender = &SendGridSender{client: &fakeSendGrid{err: errors.New("dial tcp")}, logger: logging.Discard()}
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "ops@clinic.test"}))
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	var sender *SendGridSender
	assert.Error(t, sender.Send(context.Background(), EmailMessage{To: "recipient@example.com"}))
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	fake := &fakeSES{}
	sender := NewSESSender(fake, SESConfig{FromEmail: "alerts@clinic.test"}, logging.Discard())

	err := sender.Send(context.Background(), EmailMessage{To: "ops@clinic.test", Subject: "Hi", Body: "plain", HTML: "<p>x</p>"})

	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "MediTrack <alerts@clinic.test>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"ops@clinic.test"}, in.Destination.ToAddresses)
	assert.Equal(t, "plain", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>x</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "a@b.test"}, logging.Discard())
	assert.ErrorContains(t, sender.Send(context.Background(), EmailMessage{To: "x@y.test"}), "throttled")
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(logging.Discard())
	assert.NoError(t, sender.Send(context.Background(), EmailMessage{To: "recipient@example.com"}))
}

func TestNewSender(t *testing.T) {
	ctx := context.Background()

	s, err := NewSender(ctx, Config{Provider: ""}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &StubEmailSender{}, s)

	s, err = NewSender(ctx, Config{Provider: "SendGrid"}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &StubEmailSender{}, s)

	s, err = NewSender(ctx, Config{Provider: "sendgrid", SendGrid: SendGridConfig{APIKey: "k"}}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &SendGridSender{}, s)

	s, err = NewSender(ctx, Config{Provider: "ses"}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &StubEmailSender{}, s)

	_, err = NewSender(ctx, Config{Provider: "pigeon"}, logging.Discard())
	assert.Error(t, err)
}

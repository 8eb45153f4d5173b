package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/courier-next/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

type sesClientStub struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (s *sesClientStub) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.inputs = append(s.inputs, params)
	if s.err != nil {
		return nil, s.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailServiceDisabled(t *testing.T) {
	svc, err := NewEmailService(context.Background(), &config.EmailConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new email service failed: %v", err)
	}
	if svc.Enabled() {
		t.Fatalf("disabled config should not be enabled")
	}
	if err := svc.SendText(context.Background(), "a@example.com", "s", "b"); !errors.Is(err, ErrEmailServiceDisabled) {
		t.Fatalf("expected ErrEmailServiceDisabled, got %v", err)
	}
}

func TestEmailServiceSESTransport(t *testing.T) {
	stub := &sesClientStub{}
	svc := &EmailService{
		cfg:       &config.EmailConfig{Enabled: true, Driver: "ses", From: "noreply@courier.test", FromName: "Courier"},
		transport: &sesTransport{client: stub, configurationSet: "tracking"},
	}

	if err := svc.SendText(context.Background(), "not-an-email", "s", "b"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if err := svc.SendText(context.Background(), "bob@example.com", "Parcel created", "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(stub.inputs) != 1 {
		t.Fatalf("expected one ses call, got %d", len(stub.inputs))
	}
	input := stub.inputs[0]
	if got := input.Destination.ToAddresses; len(got) != 1 || got[0] != "bob@example.com" {
		t.Fatalf("unexpected destination: %v", got)
	}
	if !strings.Contains(aws.ToString(input.FromEmailAddress), "noreply@courier.test") {
		t.Fatalf("unexpected from: %s", aws.ToString(input.FromEmailAddress))
	}
	if aws.ToString(input.Content.Simple.Subject.Data) != "Parcel created" {
		t.Fatalf("unexpected subject: %s", aws.ToString(input.Content.Simple.Subject.Data))
	}
	if aws.ToString(input.ConfigurationSetName) != "tracking" {
		t.Fatalf("configuration set not applied")
	}

	stub.err = errors.New("MessageRejected: Email address is not verified")
	if err := svc.SendText(context.Background(), "bob@example.com", "s", "b"); !errors.Is(err, ErrEmailRecipientRejected) {
		t.Fatalf("expected ErrEmailRecipientRejected, got %v", err)
	}
}

func TestBuildEmailMessage(t *testing.T) {
	msg := buildEmailMessage(buildFromAddress("noreply@courier.test", "Courier"), "bob@example.com", "包裹已创建", "body")
	if !strings.Contains(msg, "To: bob@example.com\r\n") {
		t.Fatalf("missing to header: %s", msg)
	}
	if !strings.Contains(msg, "Subject: =?UTF-8?q?") {
		t.Fatalf("subject should be q-encoded: %s", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody") {
		t.Fatalf("body should follow headers: %q", msg)
	}
}

func TestIsEmailRecipientRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "smtp_550_no_such_recipient",
			err:  errors.New("550 No such recipient here"),
			want: true,
		},
		{
			name: "smtp_user_unknown",
			err:  errors.New("SMTP 5.1.1 user unknown"),
			want: true,
		},
		{
			name: "smtp_550_mailbox_unavailable",
			err:  errors.New("550 mailbox unavailable"),
			want: true,
		},
		{
			name: "network_timeout",
			err:  errors.New("dial tcp timeout"),
			want: false,
		},
		{
			name: "nil_error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEmailRecipientRejected(tt.err); got != tt.want {
				t.Fatalf("isEmailRecipientRejected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeEmailSendError(t *testing.T) {
	rejected := errors.New("550 No such recipient here")
	if got := normalizeEmailSendError(rejected); !errors.Is(got, ErrEmailRecipientRejected) {
		t.Fatalf("normalizeEmailSendError() expected ErrEmailRecipientRejected, got %v", got)
	}

	networkErr := errors.New("dial tcp timeout")
	if got := normalizeEmailSendError(networkErr); !errors.Is(got, networkErr) {
		t.Fatalf("normalizeEmailSendError() should keep original error, got %v", got)
	}

	if got := normalizeEmailSendError(nil); got != nil {
		t.Fatalf("normalizeEmailSendError(nil) should be nil, got %v", got)
	}
}

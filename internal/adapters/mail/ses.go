package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

const charsetUTF8 = "UTF-8"

// SESConfig holds settings for the SES-backed mailer.
type SESConfig struct {
	// Region overrides the SDK's default region resolution when set.
	Region string
}

// SESMailer delivers mail through Amazon SES v2, one recipient per send.
type SESMailer struct {
	client *sesv2.Client
	logger *slog.Logger
}

// NewSESMailer builds a mailer using the SDK's default credential chain.
func NewSESMailer(ctx context.Context, cfg SESConfig, logger *slog.Logger) (*SESMailer, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return NewSESMailerWithClient(sesv2.NewFromConfig(awsCfg), logger), nil
}

// NewSESMailerWithClient builds a mailer around an existing client.
func NewSESMailerWithClient(client *sesv2.Client, logger *slog.Logger) *SESMailer {
	return &SESMailer{
		client: client,
		logger: logger,
	}
}

// Send delivers one message. Implements ports.Mailer.
func (m *SESMailer) Send(ctx context.Context, email ports.OutboundEmail) error {
	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(email.From),
		Destination: &types.Destination{
			ToAddresses: []string{email.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(email.Subject),
					Charset: aws.String(charsetUTF8),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(email.HTMLBody),
						Charset: aws.String(charsetUTF8),
					},
					Text: &types.Content{
						Data:    aws.String(email.TextBody),
						Charset: aws.String(charsetUTF8),
					},
				},
			},
		},
	})
	if err != nil {
		return domain.NewDeliveryError(email.To, sendFailureReason(err))
	}

	m.logger.InfoContext(ctx, "email sent",
		slog.String("recipient", email.To),
		slog.String("message_id", aws.ToString(out.MessageId)),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (m *SESMailer) Name() string {
	return "mailer"
}

// Check probes the SES account. Implements ports.HealthChecker.
func (m *SESMailer) Check(ctx context.Context) error {
	out, err := m.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return fmt.Errorf("probing ses account: %w", err)
	}
	if !out.SendingEnabled {
		return errors.New("ses sending is disabled for this account")
	}

	return nil
}

// sendFailureReason keeps the provider's error code in the delivery
// error when SES rejects a send.
func sendFailureReason(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}

	return err.Error()
}

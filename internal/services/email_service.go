package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/adriaticbluegrowth/portal/pkg/logger"
)

// EmailService delivers account recovery mail.
type EmailService interface {
	SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error
}

// SESSender is the subset of the SES client used for delivery.
type SESSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// ResetLink builds the link mailed to the user.
func ResetLink(baseURL, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", baseURL, url.QueryEscape(token))
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	client      SESSender
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewAWSSESEmailService loads AWS credentials from the default chain.
func NewAWSSESEmailService(ctx context.Context, region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESEmailServiceWithClient(ses.NewFromConfig(cfg), fromAddress, baseURL, logger), nil
}

func NewSESEmailServiceWithClient(client SESSender, fromAddress, baseURL string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		client:      client,
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}
}

func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := ResetLink(s.baseURL, token)
	validFor := time.Until(expiresAt).Round(time.Minute)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #e8f1f8; padding: 20px; text-align: center; border-radius: 4px; }
        .button { display: inline-block; background-color: #005a9c; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Reset your password</h1>
        </div>
        <p>We received a request to reset the password of your Adriatic Blue Growth Cluster portal account.</p>
        <p><a href="%s" class="button">Choose a new password</a></p>
        <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
        <p>The link is valid for %s and can be used once.</p>
        <p>If you did not ask for a password reset you can ignore this email. Your password stays unchanged.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, link, link, validFor)

	textBody := fmt.Sprintf(`Reset your password

We received a request to reset the password of your Adriatic Blue Growth Cluster portal account.

Open this link to choose a new password:
%s

The link is valid for %s and can be used once.

If you did not ask for a password reset you can ignore this email. Your password stays unchanged.
`, link, validFor)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("Reset your portal password"),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("password reset email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogEmailService writes reset links to the log instead of sending mail.
// Used in development; the link is redacted in production.
type LogEmailService struct {
	baseURL string
	env     string
	logger  *slog.Logger
}

func NewLogEmailService(baseURL, env string, logger *slog.Logger) *LogEmailService {
	return &LogEmailService{baseURL: baseURL, env: env, logger: logger}
}

func (s *LogEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	s.logger.InfoContext(ctx, "password reset email (not sent)",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		pkglogger.RedactedAttr("reset_link", ResetLink(s.baseURL, token), s.env),
		slog.Time("expires_at", expiresAt))
	return nil
}

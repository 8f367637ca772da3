package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"managerclass/internal/logger"
	"managerclass/internal/models"
)

// EmailSender is the part of the SES client the email service uses
type EmailSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends completion notifications via Amazon SES
type EmailService struct {
	client    EmailSender
	fromEmail string
	fromName  string
	notifyTo  string
	enabled   bool
	log       *logger.Logger
}

// NewEmailService creates a new email service. Without a sender address or
// a recipient the service is disabled and every send is a no-op.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, notifyTo string, log *logger.Logger) (*EmailService, error) {
	if fromEmail == "" || notifyTo == "" {
		log.Info("email service disabled: SES_FROM_EMAIL or NOTIFY_EMAIL not configured")
		return &EmailService{enabled: false, log: log}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return NewEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, notifyTo, log), nil
}

// NewEmailServiceWithClient creates an enabled email service on an existing client
func NewEmailServiceWithClient(client EmailSender, fromEmail, fromName, notifyTo string, log *logger.Logger) *EmailService {
	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		notifyTo:  notifyTo,
		enabled:   true,
		log:       log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// NotifyCompletion tells the operators that a learner finished every chapter
func (s *EmailService) NotifyCompletion(ctx context.Context, user *models.User) error {
	if !s.enabled {
		s.log.Debug("skipping completion email (service disabled)", "user_id", user.ID)
		return nil
	}

	completedAt := time.Now()
	if user.CompletedAt != nil {
		completedAt = *user.CompletedAt
	}
	region := user.Region
	if region == "" {
		region = UnspecifiedRegion
	}

	subject := fmt.Sprintf("[매니저 온라인 실습] %s님 수료", user.Name)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #1f7a4d; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		td { padding: 4px 12px 4px 0; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>온라인 실습 수료</h1>
		</div>
		<div class="content">
			<p>모든 챕터를 완료한 매니저 지원자가 있습니다.</p>
			<table>
				<tr><td>이름</td><td>%s</td></tr>
				<tr><td>지역</td><td>%s</td></tr>
				<tr><td>지원동기</td><td>%s</td></tr>
				<tr><td>학습 시간</td><td>%d분</td></tr>
				<tr><td>수료 시각</td><td>%s</td></tr>
			</table>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(user.Name), html.EscapeString(region), html.EscapeString(user.ApplicationReason),
		user.TotalStudyTime/60, completedAt.Format(time.RFC3339))

	textBody := fmt.Sprintf(`온라인 실습 수료

이름: %s
지역: %s
지원동기: %s
학습 시간: %d분
수료 시각: %s
`, user.Name, region, user.ApplicationReason, user.TotalStudyTime/60, completedAt.Format(time.RFC3339))

	return s.sendEmail(ctx, s.notifyTo, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.Info("completion email sent", "message_id", aws.ToString(result.MessageId))
	return nil
}

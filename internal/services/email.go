package services

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/Kiril-Hr/blog-source-back/internal/config"
	"github.com/Kiril-Hr/blog-source-back/internal/logger"
	"github.com/Kiril-Hr/blog-source-back/internal/models"
)

// ReviewNotifier tells an author about a moderation decision.
type ReviewNotifier interface {
	NotifyReview(author models.User, post models.Post) error
}

type EmailService struct {
	config  *config.EmailConfig
	baseURL string
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		config:  &cfg.Email,
		baseURL: cfg.Server.BaseURL,
		send:    smtp.SendMail,
	}
}

func (s *EmailService) SendEmail(to, subject, body string) error {
	message := []byte(fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-version: 1.0;\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n"+
		"%s\r\n", s.config.FromName, s.config.FromEmail, to, subject, body))

	username := s.config.SMTPUsername
	if username == "" {
		username = s.config.FromEmail
	}
	auth := smtp.PlainAuth("", username, s.config.SMTPPassword, s.config.SMTPHost)

	err := s.send(s.config.SMTPHost+":"+s.config.SMTPPort, auth, s.config.FromEmail, []string{to}, message)
	if err != nil {
		logger.Error.Printf("이메일 발송 실패: %v", err)
		return err
	}

	logger.Info.Printf("이메일 발송 성공: %s", to)
	return nil
}

// NotifyReview mails the author the verdict and the moderator note. It is a
// no-op when SMTP is not configured.
func (s *EmailService) NotifyReview(author models.User, post models.Post) error {
	if !s.config.Enabled() {
		logger.Info.Printf("SMTP 미설정, 검토 알림 생략: post %d", post.ID)
		return nil
	}

	subject := "Your post needs changes"
	verdict := "was returned to drafts by a moderator"
	if post.Status == models.StatusPublished {
		subject = "Your post has been published"
		verdict = "has been approved and published"
	}
	postURL := fmt.Sprintf("%s/posts/%d", s.baseURL, post.ID)

	body := fmt.Sprintf(`
		<html>
		<body>
			<p>Hi %s,</p>
			<p>Your post <a href="%s">%s</a> %s.</p>
			<p>%s</p>
		</body>
		</html>
	`, html.EscapeString(author.FullName), postURL, html.EscapeString(post.Title), verdict, html.EscapeString(post.Comment))

	return s.SendEmail(author.Email, subject, body)
}

package services

import (
	"fmt"
	"html"
	"log"
	"net/smtp"
	"strings"
	"time"
)

// EmailService sends HTML mail over SMTP. Without a host or user it runs in
// dev mode and only logs.
type EmailService struct {
	host    string
	port    string
	user    string
	pass    string
	from    string
	devMode bool
}

func NewEmailService(host, port, user, pass, from string) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	}
	return &EmailService{
		host:    host,
		port:    port,
		user:    user,
		pass:    pass,
		from:    from,
		devMode: devMode,
	}
}

func (s *EmailService) Send(to, subject, htmlBody string) error {
	if s.devMode {
		log.Printf("📧 [DEV EMAIL] To: %s | Subject: %s", to, subject)
		log.Printf("📧 Body:\n%s", htmlBody)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}

// QuizInvitation is everything an invitation email shows.
type QuizInvitation struct {
	ParticipantName string
	QuizName        string
	Description     string
	Code            string
	AttemptURL      string
	Questions       int
	TimeLimit       time.Duration
	ExpiresAt       time.Time
}

// InvitationEmail renders the subject and HTML body for a quiz invitation.
func InvitationEmail(inv QuizInvitation) (subject, body string) {
	subject = "Quiz Invitation: " + inv.QuizName

	name := html.EscapeString(inv.ParticipantName)
	if name == "" {
		name = "there"
	}
	desc := ""
	if inv.Description != "" {
		desc = fmt.Sprintf(`<p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 16px;">%s</p>`,
			html.EscapeString(inv.Description))
	}
	link := html.EscapeString(inv.AttemptURL)

	body = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #f8fafc;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; box-shadow: 0 4px 24px rgba(0,0,0,0.08); overflow: hidden;">
    <div style="background: linear-gradient(135deg, #6366f1 0%%, #8b5cf6 100%%); padding: 32px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 24px; font-weight: 700;">%s</h1>
    </div>
    <div style="padding: 32px;">
      <h2 style="margin: 0 0 16px; font-size: 20px; color: #1e293b;">Hi %s, you have been invited to a quiz</h2>
      %s
      <ul style="color: #475569; font-size: 14px; line-height: 1.8; padding-left: 20px; margin: 0 0 24px;">
        <li>Questions: %d</li>
        <li>Time limit: %d minutes</li>
        <li>Scoring: +1 per correct answer, -0.25 per wrong answer</li>
        <li>Access code: <strong>%s</strong></li>
      </ul>
      <a href="%s" style="display: inline-block; background: #6366f1; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
        Start Quiz
      </a>
      <p style="color: #94a3b8; font-size: 12px; margin: 24px 0 0; line-height: 1.5;">
        If the button doesn't work, copy and paste this link:<br>
        <a href="%s" style="color: #6366f1;">%s</a>
      </p>
      <p style="color: #94a3b8; font-size: 12px; margin: 16px 0 0;">
        The code can be used once and expires on %s.
      </p>
    </div>
  </div>
</body>
</html>`,
		html.EscapeString(inv.QuizName), name, desc,
		inv.Questions, int(inv.TimeLimit.Minutes()), html.EscapeString(inv.Code),
		link, link, link,
		inv.ExpiresAt.UTC().Format("Jan 2, 2006 15:04 MST"),
	)
	return subject, body
}

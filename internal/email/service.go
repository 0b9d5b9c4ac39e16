// Package email sends notification mail via SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("email not configured")

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email sending
type Service struct {
	config   Config
	server   string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service
func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config:   config,
		server:   config.Host + ":" + config.Port,
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s != nil && s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a plain text email
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}

	var msg bytes.Buffer
	s.writeHeaders(&msg, to, subject, "")
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	msg.WriteString(body)

	return s.sendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// SendHTMLEmail sends an HTML email with a plain text alternative. replyTo
// may be empty.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody, replyTo string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}

	boundary := "boundary-cognetex"

	var msg bytes.Buffer
	s.writeHeaders(&msg, to, subject, replyTo)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", textBody)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.sendMail(s.server, s.auth, s.config.From, to, msg.Bytes())
}

func (s *Service) writeHeaders(msg *bytes.Buffer, to []string, subject, replyTo string) {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	fmt.Fprintf(msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(msg, "From: %s\r\n", from)
	if replyTo != "" {
		fmt.Fprintf(msg, "Reply-To: %s\r\n", headerValue(replyTo))
	}
	fmt.Fprintf(msg, "Subject: %s\r\n", headerValue(subject))
}

// InquiryData holds the fields of a contact inquiry notification.
type InquiryData struct {
	SiteName    string
	Name        string
	Email       string
	ProjectType string
	Budget      string
	Message     string
	SubmittedAt time.Time
}

// SendInquiryNotification tells the site owner about a new contact inquiry.
// Replies go to the person who submitted it.
func (s *Service) SendInquiryNotification(to string, data InquiryData) error {
	if data.SiteName == "" {
		data.SiteName = "Cognetex"
	}
	subject := fmt.Sprintf("New %s inquiry from %s", data.ProjectType, data.Name)
	html, err := renderTemplate(inquiryEmailTemplate, data)
	if err != nil {
		return fmt.Errorf("render inquiry template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, subject, inquiryText(data), html, data.Email)
}

func inquiryText(data InquiryData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\r\n", data.Name)
	fmt.Fprintf(&b, "Email: %s\r\n", data.Email)
	fmt.Fprintf(&b, "Project type: %s\r\n", data.ProjectType)
	fmt.Fprintf(&b, "Budget: %s\r\n", data.Budget)
	if data.Message != "" {
		fmt.Fprintf(&b, "\r\n%s\r\n", data.Message)
	}
	return b.String()
}

// headerValue strips line breaks so user input cannot add headers.
func headerValue(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

func renderTemplate(tmpl string, data any) (string, error) {
	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const inquiryEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New inquiry for {{.SiteName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0f766e; padding-bottom: 10px; margin-bottom: 20px; }
        th { text-align: left; padding-right: 16px; color: #666; font-weight: normal; }
        .message { background: #f5f5f4; padding: 12px; border-radius: 4px; margin: 20px 0; white-space: pre-wrap; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.SiteName}}</h1>
    </div>

    <h2>New project inquiry</h2>

    <table>
        <tr><th>Name</th><td>{{.Name}}</td></tr>
        <tr><th>Email</th><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
        <tr><th>Project type</th><td>{{.ProjectType}}</td></tr>
        <tr><th>Budget</th><td>{{.Budget}}</td></tr>
    </table>
    {{if .Message}}
    <div class="message">{{.Message}}</div>
    {{end}}
    <div class="footer">
        <p>Submitted {{.SubmittedAt.Format "2006-01-02 15:04 MST"}} through the contact form.</p>
    </div>
</body>
</html>`

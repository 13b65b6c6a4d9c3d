package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	gomail "github.com/wneessen/go-mail"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/config"
)

const resetSubject = "Reset your password"

var resetBody = template.Must(template.New("reset").Parse(
	`<p>Someone asked to reset the password for this account.</p>
<p><a href="{{.}}">Choose a new password</a></p>
<p>The link expires in one hour. Ignore this mail if you did not ask for it.</p>`))

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

func renderReset(link string) (string, error) {
	var buf bytes.Buffer
	if err := resetBody.Execute(&buf, link); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) message(to, link string) (*gomail.Msg, error) {
	body, err := renderReset(link)
	if err != nil {
		return nil, err
	}
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(gomail.TypeTextHTML, body)
	return msg, nil
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	msg, err := m.message(to, link)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// LogMailer writes reset links to the log. Used when no SMTP host is set.
type LogMailer struct {
	log logrus.FieldLogger
}

func NewLogMailer(log logrus.FieldLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.log.WithFields(logrus.Fields{"to": to, "link": link}).Info("password reset mail")
	return nil
}

// New picks the SMTP relay when one is configured.
func New(cfg config.SMTPConfig, log logrus.FieldLogger) Mailer {
	if cfg.Host == "" {
		return NewLogMailer(log)
	}
	return NewSMTPMailer(cfg)
}

// Package mailer renders and delivers notification emails.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onboarding-booking-api/internal/config"
	"github.com/onboarding-booking-api/pkg/mq"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// Message is a rendered email
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html"`
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoRecipients is returned when a message has nobody to go to
var ErrNoRecipients = errors.New("message has no recipients")

// New builds the Sender selected by cfg.Transport. The returned close function
// releases transport resources and is never nil.
func New(cfg *config.MailConfig, log zerolog.Logger) (Sender, func() error, error) {
	log = log.With().Str("component", "mailer").Str("transport", cfg.Transport).Logger()

	switch cfg.Transport {
	case "smtp":
		return &smtpSender{
			host:    cfg.SMTPHost,
			port:    cfg.SMTPPort,
			user:    cfg.SMTPUser,
			pass:    cfg.SMTPPassword,
			from:    cfg.From,
			timeout: cfg.SMTPTimeout,
		}, func() error { return nil }, nil
	case "amqp":
		pub, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		return &queueSender{pub: pub, from: cfg.From}, pub.Close, nil
	case "log", "":
		return &logSender{log: log}, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
}

// logSender writes messages to the log instead of delivering them
type logSender struct {
	log zerolog.Logger
}

func (s *logSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	s.log.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("text_bytes", len(msg.Text)).
		Msg("Mail not delivered (log transport)")
	return nil
}

// publisher is the part of mq.Publisher the queue transport needs
type publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// queueSender hands messages to a mail relay consuming from a RabbitMQ exchange
type queueSender struct {
	pub  publisher
	from string
}

// queuedMessage is the JSON body published for the relay
type queuedMessage struct {
	From string `json:"from"`
	Message
}

const routingKey = "mail.send"

func (s *queueSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := s.pub.PublishJSON(ctx, routingKey, queuedMessage{From: s.from, Message: msg}); err != nil {
		return fmt.Errorf("failed to queue mail: %w", err)
	}
	return nil
}

// smtpSender delivers directly over SMTP, upgrading with STARTTLS when offered.
// A client is built per message so concurrent sends never share a connection.
type smtpSender struct {
	host    string
	port    int
	user    string
	pass    string
	from    string
	timeout time.Duration
}

func (s *smtpSender) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTimeout(s.timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.user),
			mail.WithPassword(s.pass),
		)
	}
	return mail.NewClient(s.host, opts...)
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := newMsg(s.from, msg)
	if err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// newMsg builds a multipart/alternative message with text and HTML parts
func newMsg(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)

	switch {
	case msg.Text != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		if msg.HTML != "" {
			m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
		}
	default:
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/config"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

var _ Mailer = (*Transport)(nil)

// Transport реализует Mailer поверх net/smtp.
type Transport struct {
	cfg config.SMTP
	log *slog.Logger
}

type session struct {
	client *smtp.Client
}

func (w *session) Mail(from string) error {
	return w.client.Mail(from)
}

func (w *session) Rcpt(to string) error {
	return w.client.Rcpt(to)
}

func (w *session) Data() (io.WriteCloser, error) {
	return w.client.Data()
}

func (w *session) Quit() error {
	return w.client.Quit()
}

func (w *session) Close() error {
	return w.client.Close()
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Address возвращает host:port SMTP сервера.
func (t *Transport) Address() string {
	return net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)
}

// Connect устанавливает соединение с SMTP сервером, включает STARTTLS и авторизуется.
func (t *Transport) Connect() (Session, error) {
	const op = "smtp.Connect"

	conn, err := net.DialTimeout("tcp", t.Address(), dialTimeout)
	if err != nil {
		t.log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		t.log.Error("failed to create SMTP client", sl.Err(err))
		if closeErr := conn.Close(); closeErr != nil {
			t.log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.closeClient(client)
		return nil, fmt.Errorf("%s: server does not support STARTTLS", op)
	}
	tlsConfig := &tls.Config{
		ServerName: t.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		t.log.Error("failed to start TLS", sl.Err(err))
		t.closeClient(client)
		return nil, fmt.Errorf("%s: starttls: %w", op, err)
	}

	auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
	if err = client.Auth(auth); err != nil {
		t.log.Error("smtp auth failed", sl.Err(err))
		t.closeClient(client)
		return nil, fmt.Errorf("%s: auth: %w", op, err)
	}

	return &session{client: client}, nil
}

func (t *Transport) closeClient(client *smtp.Client) {
	if err := client.Close(); err != nil {
		t.log.Error("failed to close client", sl.Err(err))
	}
}

// From возвращает адрес отправителя уведомлений, он же логин SMTP.
func (t *Transport) From() string {
	return t.cfg.SMTPUser
}

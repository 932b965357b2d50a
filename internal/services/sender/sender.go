// Package services формирует и отправляет письма по уведомлениям из очередей.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/smtp"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/magabrotheeeer/buscaaqui/internal/rabbitmq"
)

// SenderService отправляет письма пользователям.
type SenderService struct {
	transport smtp.Mailer
	baseURL   string
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
// baseURL используется для ссылок в тексте писем.
func NewSenderService(transport smtp.Mailer, baseURL string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       log,
	}
}

// Handle обрабатывает тело сообщения из очереди. Нечитаемые сообщения и
// сообщения без адреса отбрасываются через rabbitmq.ErrDiscard, ошибки SMTP
// возвращаются как есть для повторной доставки.
func (s *SenderService) Handle(body []byte) error {
	const op = "services.sender.Handle"

	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrDiscard, err)
	}
	if n.Email == "" {
		return fmt.Errorf("%s: %w: empty recipient", op, rabbitmq.ErrDiscard)
	}

	subject, text, ok := s.compose(n)
	if !ok {
		return fmt.Errorf("%s: %w: unknown notification type %q", op, rabbitmq.ErrDiscard, n.Type)
	}
	if err := s.sendEmail([]string{n.Email}, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func greeting(name string) string {
	if name == "" {
		return "Olá!"
	}
	return fmt.Sprintf("Olá, %s!", name)
}

// compose возвращает тему и текст письма для типа уведомления.
func (s *SenderService) compose(n models.Notification) (string, string, bool) {
	switch n.Type {
	case models.NotificationPaymentConfirmed:
		text := fmt.Sprintf("%s\n\nRecebemos o seu pagamento de R$ %s. Sua assinatura do BuscaAqui está ativa.",
			greeting(n.Name), n.Data["value"])
		if url := n.Data["invoice_url"]; url != "" {
			text += "\n\nComprovante: " + url
		}
		return "Pagamento confirmado", text, true

	case models.NotificationAdModerated:
		title := n.Data["title"]
		if n.Data["status"] == models.AdApproved {
			return "Seu anúncio foi aprovado",
				fmt.Sprintf("%s\n\nSeu anúncio \"%s\" foi aprovado e já está visível.\n\n%s/anuncios/%s",
					greeting(n.Name), title, s.baseURL, n.Data["ad_id"]), true
		}
		return "Seu anúncio foi recusado",
			fmt.Sprintf("%s\n\nSeu anúncio \"%s\" foi recusado.\nMotivo: %s\n\nVocê pode editá-lo e enviá-lo novamente.",
				greeting(n.Name), title, n.Data["reason"]), true

	case models.NotificationSubscriptionExpiring:
		return "Sua assinatura termina amanhã",
			fmt.Sprintf("%s\n\nSua assinatura do plano %s termina em %s.\nPara continuar com os benefícios, renove em %s/planos.",
				greeting(n.Name), n.Data["plan"], n.Data["ends_at"], s.baseURL), true
	}
	return "", "", false
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.From(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Mail(s.transport.From()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.From()), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err := wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err := client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to), slog.String("subject", subject))
	return nil
}

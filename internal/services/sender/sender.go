// Package sender превращает уведомления сервиса аккаунтов в письма и отправляет их по SMTP.
package sender

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/lib/smtp"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// ErrUnknownKind уведомление неизвестного вида.
var ErrUnknownKind = errors.New("unknown notification kind")

// SenderService отправляет письма по уведомлениям из очереди.
type SenderService struct {
	transport   smtp.TransportInterface
	frontendURL string
	log         *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(frontendURL string, log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		transport:   transport,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

type email struct {
	subject string
	body    string
}

// SendAccountNotification разбирает сообщение из очереди и отправляет письмо нужного вида.
// Ошибки разбора и неизвестный вид письма оборачиваются в rabbitmq.ErrPermanent,
// ошибки SMTP возвращаются как есть, чтобы сообщение вернулось в очередь.
func (s *SenderService) SendAccountNotification(body []byte) error {
	const op = "sender.SendAccountNotification"

	var message models.Notification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w: error unmarshalling message: %w", op, rabbitmq.ErrPermanent, err)
	}
	if message.Recipient == "" {
		return fmt.Errorf("%s: %w: empty recipient", op, rabbitmq.ErrPermanent)
	}

	mail, err := s.render(message)
	if err != nil {
		s.log.Error("failed to render email", slog.String("kind", string(message.Kind)), sl.Err(err))
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrPermanent, err)
	}
	return s.sendEmail([]string{message.Recipient}, mail.subject, mail.body)
}

func (s *SenderService) render(n models.Notification) (email, error) {
	switch n.Kind {
	case models.KindNewAccount:
		return email{
			subject: "Добро пожаловать",
			body: fmt.Sprintf("Здравствуйте!\n\nВы зарегистрировались с адресом %s.\n"+
				"Чтобы подтвердить почту, перейдите по ссылке:\n%s\n",
				n.Recipient, s.verifyLink(n.Token)),
		}, nil
	case models.KindEmailVerification:
		return email{
			subject: "Подтверждение почты",
			body: fmt.Sprintf("Здравствуйте!\n\nЧтобы подтвердить почту %s, перейдите по ссылке:\n%s\n",
				n.Recipient, s.verifyLink(n.Token)),
		}, nil
	case models.KindPasswordReset:
		return email{
			subject: "Сброс пароля",
			body: fmt.Sprintf("Здравствуйте!\n\nМы получили запрос на сброс пароля для %s.\n"+
				"Чтобы задать новый пароль, перейдите по ссылке:\n%s\n\n"+
				"Если вы не запрашивали сброс, просто проигнорируйте это письмо.\n",
				n.Recipient, s.resetLink(n.Recipient, n.Token)),
		}, nil
	default:
		return email{}, fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}
}

func (s *SenderService) verifyLink(token string) string {
	q := url.Values{}
	q.Set("token", token)
	return s.frontendURL + "/email/verify?" + q.Encode()
}

func (s *SenderService) resetLink(recipient, token string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", recipient)
	return s.frontendURL + "/reset-password?" + q.Encode()
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
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
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
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

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}

package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"kream_tracker/internal/config"
	sl "kream_tracker/internal/lib/logger"
	"kream_tracker/internal/models"

	"gopkg.in/gomail.v2"
)

// EmailSender обрабатывает сообщения из очереди уведомлений и
// отправляет письма через SMTP.
type EmailSender struct {
	dialer     *gomail.Dialer
	from       string
	resultBase string
	log        *slog.Logger
}

func NewEmailSender(cfg config.SMTP, resultBase string, log *slog.Logger) *EmailSender {
	return &EmailSender{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:       cfg.From,
		resultBase: resultBase,
		log:        log,
	}
}

// HandleMessage — consumer handler. Ошибка отправки логируется и не
// возвращается: уведомления не ретраятся, сообщение ack'ается всегда.
func (s *EmailSender) HandleMessage(ctx context.Context, body []byte) error {
	const op = "notifier.HandleMessage"

	var n models.AlertNotification

	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("invalid notification message", slog.String("op", op), sl.Err(err))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", n.Email)
	msg.SetHeader("Subject", fmt.Sprintf("가격 알림: %s", n.ItemTitle))
	msg.SetBody("text/html", s.renderBody(n))

	if err := s.dialer.DialAndSend(msg); err != nil {
		s.log.Error("failed to send alert email",
			slog.String("op", op),
			slog.String("email", n.Email),
			slog.Int64("alert_id", n.AlertID),
			sl.Err(err),
		)
		return nil
	}

	s.log.Info("alert email sent",
		slog.String("email", n.Email),
		slog.Int64("alert_id", n.AlertID),
	)

	return nil
}

func (s *EmailSender) renderBody(n models.AlertNotification) string {
	return fmt.Sprintf(`
		<h2>가격 알림이 발동되었습니다</h2>
		<p><strong>%s</strong></p>
		<p>한국 가격: ₩%s</p>
		<p>일본 가격: ¥%s (₩%s)</p>
		<p>가격 차이: %.1f%%</p>
		<p><a href="%s/result?itemId=%d">자세히 보기</a></p>
	`,
		n.ItemTitle,
		groupDigits(n.KreamPriceKR),
		groupDigits(n.JPPriceJP),
		groupDigits(n.JPPriceKR),
		n.DiffPercent,
		s.resultBase,
		n.ItemID,
	)
}

// groupDigits форматирует 139000 как "139,000"
func groupDigits(n int) string {
	s := strconv.Itoa(n)

	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}

	if neg {
		return "-" + s
	}
	return s
}

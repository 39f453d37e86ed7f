package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/threadkart/threadkart-backend-go/models"
)

// Mailer is the SMTP implementation of Dispatcher.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewMailer(cfg MailerConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *Mailer) OrderConfirmation(ctx context.Context, order *models.Order, to string) error {
	subject := fmt.Sprintf("Order confirmed — #%s", order.ID.Hex())
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your order <b>#%s</b> for ₹%.2f has been placed. "+
			"We will email you when it ships.</p>",
		order.Name, order.ID.Hex(), order.Total)
	return m.send(ctx, to, subject, body)
}

func (m *Mailer) StatusUpdate(ctx context.Context, order *models.Order, to string, status models.OrderStatus) error {
	subject := fmt.Sprintf("Order #%s is now %s", order.ID.Hex(), status)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your order <b>#%s</b> is now <b>%s</b>.",
		order.Name, order.ID.Hex(), status)
	if status == models.OrderStatusShipped && order.TrackingNumber != "" {
		body += fmt.Sprintf(" Tracking number: <b>%s</b>.", order.TrackingNumber)
	}
	body += "</p>"
	return m.send(ctx, to, subject, body)
}

func (m *Mailer) ReturnApproved(ctx context.Context, order *models.Order, to string) error {
	subject := fmt.Sprintf("Return approved — order #%s", order.ID.Hex())
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your return request for order <b>#%s</b> has been approved. "+
			"The refund will be sent to %s.</p>",
		order.Name, order.ID.Hex(), order.RefundUpiID)
	return m.send(ctx, to, subject, body)
}

func (m *Mailer) ReturnRejected(ctx context.Context, order *models.Order, to string) error {
	subject := fmt.Sprintf("Return request update — order #%s", order.ID.Hex())
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your return request for order <b>#%s</b> could not be approved. "+
			"Reply to this mail if you think this is a mistake.</p>",
		order.Name, order.ID.Hex())
	return m.send(ctx, to, subject, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)
	return m.dialer.DialAndSend(msg)
}

// Package notify sends customer emails about their orders.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/lulocustoms/shop/internal/models"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// OrderPaid sends the payment confirmation for o to the customer.
func (m *Mailer) OrderPaid(ctx context.Context, o *models.Order) error {
	msg, err := PaidMessage(m.cfg.From, o)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", o.OrderNumber, err)
	}
	return nil
}

func PaidMessage(from string, o *models.Order) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(o.CustomerEmail); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	msg.Subject("Potwierdzenie płatności - zamówienie " + o.OrderNumber)
	msg.SetBodyString(mail.TypeTextPlain, PaidBody(o))
	return msg, nil
}

func PaidBody(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dzień dobry %s,\n\n", o.CustomerName)
	fmt.Fprintf(&b, "otrzymaliśmy płatność za zamówienie %s.\n\n", o.OrderNumber)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "- %s x%d: %s PLN\n", it.ProductName, it.Quantity, it.ProductPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nRazem: %s PLN\n\nAdres dostawy:\n%s\n", o.TotalPrice.StringFixed(2), o.CustomerAddress)
	b.WriteString("\nDziękujemy za zakupy!\nLuloCustoms\n")
	return b.String()
}

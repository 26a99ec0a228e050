// Package mailer sends transactional mail over plain SMTP.
package mailer

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/smtp"
	"strings"

	"drivelous-store/internal/domain"
)

const confirmationSubject = "Thanks for the biz! Here's your order confirmation."

// Mailer delivers order confirmations. With no SMTP address configured it
// logs and drops mail instead of failing, so checkout works in development.
type Mailer struct {
	addr   string
	from   string
	logger *log.Logger

	send func(addr, from string, to []string, msg []byte) error
}

func New(addr, from string, logger *log.Logger) *Mailer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Mailer{
		addr:   addr,
		from:   from,
		logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// SendOrderConfirmation mails the completed order's contents to the customer.
func (m *Mailer) SendOrderConfirmation(_ context.Context, to string, ord *domain.Order, cart *domain.Cart) error {
	if m.addr == "" {
		m.logger.Printf("mailer: no smtp address configured, dropping confirmation for order %s", ord.OrderID)
		return nil
	}
	msg := buildMessage(m.from, to, confirmationSubject, confirmationBody(ord, cart))
	if err := m.send(m.addr, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	m.logger.Printf("mailer: sent confirmation for order %s", ord.OrderID)
	return nil
}

func confirmationBody(ord *domain.Order, cart *domain.Cart) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%s\r\n\r\n", ord.OrderID)
	for _, line := range cart.Lines {
		fmt.Fprintf(&b, "%d x %s (%s) - $%s\r\n", line.Quantity, line.Name, line.Size, dollars(line.TotalCents))
	}
	fmt.Fprintf(&b, "\r\nTotal: $%s\r\n", dollars(cart.TotalCents))
	if ord.HasShipping() {
		fmt.Fprintf(&b, "\r\nShipping to:\r\n%s %s\r\n%s\r\n", ord.Shipping.FirstName, ord.Shipping.LastName, ord.Shipping.Address1)
		if ord.Shipping.Address2 != "" {
			fmt.Fprintf(&b, "%s\r\n", ord.Shipping.Address2)
		}
		fmt.Fprintf(&b, "%s, %s %s\r\n%s\r\n", ord.Shipping.City, ord.Shipping.State, ord.Shipping.ZipCode, ord.Shipping.Country)
	}
	return b.String()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func dollars(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"

	"github.com/traaaction/backend/internal/model"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMTPEmailSender struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSMTPEmailSender(host, port, user, pass, from string) *SMTPEmailSender {
	return &SMTPEmailSender{host: host, port: port, user: user, pass: pass, from: from}
}

func (s *SMTPEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	e := email.NewEmail()
	e.From = s.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	return e.Send(addr, auth)
}

// Mailer turns commission events into seller emails. Sellers without an
// email address are skipped.
type Mailer struct {
	sender EmailSender
}

func NewMailer(sender EmailSender) *Mailer {
	return &Mailer{sender: sender}
}

func (m *Mailer) CommissionsMatured(ctx context.Context, seller *model.Seller, commissions []model.Commission) error {
	if seller.Email == nil || *seller.Email == "" || len(commissions) == 0 {
		return nil
	}

	var total int64
	var lines []string
	for _, c := range commissions {
		total += c.CommissionAmount
		lines = append(lines, fmt.Sprintf("  - %s %s (%s)", FormatAmount(c.CommissionAmount), c.Currency, c.Source))
	}

	body := fmt.Sprintf(
		"Hello %s,\n\n%d commission(s) finished their hold period and are now due for payout:\n\n%s\n\nTotal: %s\n",
		seller.Name, len(commissions), strings.Join(lines, "\n"), FormatAmount(total))
	return m.sender.SendEmail(ctx, *seller.Email, "Your commissions are ready for payout", body)
}

func (m *Mailer) PayoutCompleted(ctx context.Context, seller *model.Seller, payout model.SellerPayout) error {
	if seller.Email == nil || *seller.Email == "" {
		return nil
	}

	body := fmt.Sprintf(
		"Hello %s,\n\nA payout of %s covering %d commission(s) has been sent.\n",
		seller.Name, FormatAmount(payout.Amount), len(payout.Commissions))
	return m.sender.SendEmail(ctx, *seller.Email, "Payout completed", body)
}

// FormatAmount renders minor units with two decimals.
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

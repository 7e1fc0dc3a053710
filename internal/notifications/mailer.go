package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domain "github.com/Festuskumi/TCtrl-backend/internal/domain"
)

type sendGridSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailerConfig configures the SendGrid-backed mailer.
type SendGridMailerConfig struct {
	APIKey      string
	FromAddress string
	FromName    string

	// Sender overrides the live SendGrid client, primarily for tests.
	Sender sendGridSender
}

// SendGridMailer sends order confirmation emails. User-sourced strings are
// sanitised before interpolation into the HTML body.
type SendGridMailer struct {
	sender    sendGridSender
	from      *mail.Email
	sanitizer *bluemonday.Policy
	printer   *message.Printer
}

// NewSendGridMailer constructs the mailer.
func NewSendGridMailer(cfg SendGridMailerConfig) (*SendGridMailer, error) {
	fromAddress := strings.TrimSpace(cfg.FromAddress)
	if fromAddress == "" {
		return nil, errors.New("mailer: from address is required")
	}

	sender := cfg.Sender
	if sender == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("mailer: sendgrid api key is required")
		}
		sender = sendgrid.NewSendClient(apiKey)
	}

	return &SendGridMailer{
		sender:    sender,
		from:      mail.NewEmail(strings.TrimSpace(cfg.FromName), fromAddress),
		sanitizer: bluemonday.StrictPolicy(),
		printer:   message.NewPrinter(language.BritishEnglish),
	}, nil
}

// SendOrderConfirmation emails the order summary to the recipient.
func (m *SendGridMailer) SendOrderConfirmation(ctx context.Context, order domain.Order, recipient string) error {
	if m == nil || m.sender == nil {
		return errors.New("mailer: not initialised")
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return errors.New("mailer: recipient address is required")
	}

	subject := fmt.Sprintf("Your TCTRL order %s", order.ID)
	to := mail.NewEmail(m.clean(order.Address.FirstName+" "+order.Address.LastName), recipient)

	email := mail.NewSingleEmail(m.from, subject, to, m.plainBody(order), m.htmlBody(order))
	resp, err := m.sender.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("mailer: send confirmation for %s: %w", order.ID, err)
	}
	if resp != nil && resp.StatusCode >= 300 {
		return fmt.Errorf("mailer: sendgrid returned %d for %s", resp.StatusCode, order.ID)
	}
	return nil
}

func (m *SendGridMailer) plainBody(order domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order %s.\n\n", order.ID)

	subtotal := 0.0
	for _, item := range order.Items {
		lineTotal := item.Price * float64(item.Quantity)
		subtotal += lineTotal
		fmt.Fprintf(&b, "%s (%s) x%d  %s\n", m.clean(item.Title), m.clean(item.Size), item.Quantity, m.gbp(lineTotal))
	}

	fmt.Fprintf(&b, "\nSubtotal: %s\n", m.gbp(subtotal))
	fmt.Fprintf(&b, "Shipping: %s\n", m.gbp(domain.PostageFee))
	fmt.Fprintf(&b, "Total: %s\n\n", m.gbp(order.Amount))
	fmt.Fprintf(&b, "Delivery address:\n%s\n", m.formatAddress(order.Address))
	return b.String()
}

func (m *SendGridMailer) htmlBody(order domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Thanks for your order</h2><p>Order <strong>%s</strong></p>", m.clean(order.ID))
	b.WriteString("<table><tbody>")

	subtotal := 0.0
	for _, item := range order.Items {
		lineTotal := item.Price * float64(item.Quantity)
		subtotal += lineTotal
		fmt.Fprintf(&b, "<tr><td>%s (%s)</td><td>x%d</td><td>%s</td></tr>",
			m.clean(item.Title), m.clean(item.Size), item.Quantity, m.gbp(lineTotal))
	}
	b.WriteString("</tbody></table>")

	fmt.Fprintf(&b, "<p>Subtotal: %s<br>Shipping: %s<br><strong>Total: %s</strong></p>",
		m.gbp(subtotal), m.gbp(domain.PostageFee), m.gbp(order.Amount))
	fmt.Fprintf(&b, "<p>Delivery address:<br>%s</p>",
		strings.ReplaceAll(m.formatAddress(order.Address), "\n", "<br>"))
	return b.String()
}

func (m *SendGridMailer) formatAddress(addr domain.Address) string {
	lines := []string{
		strings.TrimSpace(addr.FirstName + " " + addr.LastName),
		addr.Street,
		addr.City,
		addr.County,
		addr.Postcode,
		addr.Country,
	}
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = m.clean(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

func (m *SendGridMailer) clean(s string) string {
	return strings.TrimSpace(m.sanitizer.Sanitize(s))
}

func (m *SendGridMailer) gbp(amount float64) string {
	return m.printer.Sprintf("£%.2f", amount)
}

package deliver

import (
	"fmt"
	"strings"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	gomail "gopkg.in/gomail.v2"
)

// Provider identifies a recognised SMTP host per §6.
type Provider string

const (
	ProviderGmail Provider = "gmail"
	ProviderZoho  Provider = "zoho"
)

var providerHosts = map[Provider]struct {
	host string
	port int
}{
	ProviderGmail: {host: "smtp.gmail.com", port: 587},
	ProviderZoho:  {host: "smtp.zoho.com", port: 587},
}

// Credentials is the (user, app-password) pair §6 requires for the chosen
// provider.
type Credentials struct {
	Provider Provider
	User     string
	Password string
}

// Stage is the deliver stage's public surface.
type Stage interface {
	Deliver(subject, plainBody string, recipients []string) core.DeliveryRecord
}

// SMTPStage connects and verifies before every send, as §4.6 requires, by
// relying on gomail's Dialer.Dial performing the handshake up front.
type SMTPStage struct {
	creds Credentials
}

func NewSMTPStage(creds Credentials) (*SMTPStage, error) {
	if _, ok := providerHosts[creds.Provider]; !ok {
		return nil, fmt.Errorf("deliver: unrecognised provider %q", creds.Provider)
	}
	return &SMTPStage{creds: creds}, nil
}

func (s *SMTPStage) Deliver(subject, plainBody string, recipients []string) core.DeliveryRecord {
	if len(recipients) == 0 {
		return core.DeliveryRecord{
			Status:        core.DeliverySkipped,
			Recipients:    recipients,
			FailureReason: "No recipients configured",
		}
	}

	host := providerHosts[s.creds.Provider]
	dialer := gomail.NewDialer(host.host, host.port, s.creds.User, s.creds.Password)

	sender, err := dialer.Dial()
	if err != nil {
		return core.DeliveryRecord{
			Status:        core.DeliveryFailed,
			Recipients:    recipients,
			FailureReason: err.Error(),
		}
	}
	defer sender.Close()

	m := gomail.NewMessage()
	m.SetHeader("From", s.creds.User)
	m.SetHeader("To", strings.Join(recipients, ","))
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", RenderHTML(plainBody))

	if err := gomail.Send(sender, m); err != nil {
		return core.DeliveryRecord{
			Status:        core.DeliveryFailed,
			Recipients:    recipients,
			FailureReason: err.Error(),
		}
	}

	now := time.Now()
	return core.DeliveryRecord{
		Status:     core.DeliverySent,
		SentAt:     &now,
		Recipients: recipients,
	}
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

var (
	ErrNotConfigured = errors.New("notify: sms sender is not configured")
	ErrNoRecipient   = errors.New("notify: recipient phone is empty")
)

// Sender is the messaging provider boundary.
type Sender interface {
	SendSMS(ctx context.Context, from, to, body string) (sid string, err error)
}

// Dispatcher sends best-effort notifications. Failures are logged and returned
// as values; they never abort the caller's transaction.
type Dispatcher struct {
	sender Sender
	from   string
}

// NewDispatcher returns a dispatcher; a nil sender yields one that reports
// ErrNotConfigured on every send.
func NewDispatcher(sender Sender, from string) *Dispatcher {
	return &Dispatcher{sender: sender, from: strings.TrimSpace(from)}
}

func (d *Dispatcher) Enabled() bool {
	return d != nil && d.sender != nil && d.from != ""
}

// Send returns whether the message was accepted by the provider.
func (d *Dispatcher) Send(ctx context.Context, to, body string) (sent bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
			err = fmt.Errorf("notify: sender panicked: %v", r)
			log.Errorf("[Notify] %v", err)
		}
	}()

	if !d.Enabled() {
		log.Warnf("[Notify] SMS to %s skipped: %v", maskPhone(to), ErrNotConfigured)
		return false, ErrNotConfigured
	}
	to = strings.TrimSpace(to)
	if to == "" {
		log.Warnf("[Notify] SMS skipped: %v", ErrNoRecipient)
		return false, ErrNoRecipient
	}

	sid, err := d.sender.SendSMS(ctx, d.from, to, body)
	if err != nil {
		log.Errorf("[Notify] SMS to %s failed: %v", maskPhone(to), err)
		return false, err
	}
	log.Infof("[Notify] SMS sent to %s (sid=%s)", maskPhone(to), sid)
	return true, nil
}

// maskPhone keeps the last four digits for log correlation.
func maskPhone(phone string) string {
	p := strings.TrimSpace(phone)
	if len(p) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}

package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/jstittsworth/milestone-tracker/internal/models"
)

// MessageSender delivers one text message
type MessageSender interface {
	SendMessage(ctx context.Context, to, body string) error
}

// MockSender logs messages instead of sending them and keeps them for inspection
type MockSender struct {
	mu     sync.Mutex
	sent   []SentMessage
	logger *logrus.Logger
}

type SentMessage struct {
	To   string
	Body string
}

func NewMockSender(logger *logrus.Logger) *MockSender {
	return &MockSender{logger: logger}
}

func (s *MockSender) SendMessage(ctx context.Context, to, body string) error {
	s.mu.Lock()
	s.sent = append(s.sent, SentMessage{To: to, Body: body})
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"component": "notifier",
		"to":        to,
	}).Infof("MOCK SMS: %s", body)
	return nil
}

// Sent returns a copy of every message sent so far
func (s *MockSender) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}

// messageCreator is the part of the Twilio REST API used here
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends SMS through Twilio behind a circuit breaker
type TwilioSender struct {
	api        messageCreator
	fromNumber string
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewTwilioSender creates a sender using the account credentials
func NewTwilioSender(accountSID, authToken, fromNumber string, logger *logrus.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioSender(client.Api, fromNumber, logger)
}

func newTwilioSender(api messageCreator, fromNumber string, logger *logrus.Logger) *TwilioSender {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "twilio",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &TwilioSender{
		api:        api,
		fromNumber: fromNumber,
		breaker:    breaker,
		logger:     logger,
	}
}

// SendMessage sends an SMS message via Twilio
func (s *TwilioSender) SendMessage(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(body)

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.api.CreateMessage(params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return fmt.Errorf("SMS service temporarily unavailable: %w", err)
		}
		s.logger.WithField("to", to).WithError(err).Error("Twilio SMS failed")
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	entry := s.logger.WithField("to", to)
	if msg, ok := result.(*twilioApi.ApiV2010Message); ok && msg != nil && msg.Sid != nil {
		entry = entry.WithField("sid", *msg.Sid)
	}
	entry.Info("Twilio SMS sent")
	return nil
}

var (
	nonPhoneChars = regexp.MustCompile(`[^\d+]`)
	tenDigits     = regexp.MustCompile(`^\d{10}$`)
	e164          = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// NormalizePhoneNumber returns phone in E.164 form, assuming +1 for bare
// ten-digit numbers
func NormalizePhoneNumber(phone string) (string, error) {
	cleaned := nonPhoneChars.ReplaceAllString(phone, "")
	if !strings.HasPrefix(cleaned, "+") {
		if !tenDigits.MatchString(cleaned) {
			return "", fmt.Errorf("invalid phone number %q", phone)
		}
		cleaned = "+1" + cleaned
	}
	if !e164.MatchString(cleaned) {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
	return cleaned, nil
}

// Notifier formats the current status and sends it to every recipient
type Notifier struct {
	sender     MessageSender
	limiter    *NotifyRateLimiter
	recipients []string
	logger     *logrus.Logger
}

// NewNotifier creates a notifier. limiter may be nil.
func NewNotifier(sender MessageSender, limiter *NotifyRateLimiter, recipients []string, logger *logrus.Logger) *Notifier {
	return &Notifier{
		sender:     sender,
		limiter:    limiter,
		recipients: recipients,
		logger:     logger,
	}
}

// Notify sends the formatted snapshot. Rate-limited recipients are skipped;
// delivery failures are collected and returned together.
func (n *Notifier) Notify(ctx context.Context, result models.ProjectionResult, stale bool) (int, error) {
	body := FormatNotification(result, stale)

	var (
		sent int
		errs []error
	)
	for _, raw := range n.recipients {
		to, err := NormalizePhoneNumber(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if n.limiter != nil {
			if err := n.limiter.Allow(to); err != nil {
				n.logger.WithField("to", to).Warn("Notification rate limited")
				continue
			}
		}

		if err := n.sender.SendMessage(ctx, to, body); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", to, err))
			continue
		}
		sent++
	}

	return sent, errors.Join(errs...)
}

// FormatNotification renders the message body for a snapshot
func FormatNotification(result models.ProjectionResult, stale bool) string {
	var b strings.Builder

	name := result.PlayerName
	if name == "" {
		name = "Milestone tracker"
	}
	b.WriteString(name)
	if result.CurrentTotal > 0 {
		fmt.Fprintf(&b, ": %d career goals", result.CurrentTotal)
	}
	b.WriteString("\n")
	b.WriteString(StatusMessage(result))

	if result.Pace != nil {
		fmt.Fprintf(&b, "\nPace: %.3f goals per game", *result.Pace)
	}
	if result.GamesNeeded != nil {
		fmt.Fprintf(&b, " (%d games needed)", *result.GamesNeeded)
	}
	if stale {
		b.WriteString("\nLive stats unavailable, showing the last saved update")
	}
	return b.String()
}

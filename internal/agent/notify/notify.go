package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wbdigital-chatbot/server/internal/agent/metrics"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const (
	ChannelLog      = "log"
	ChannelTelegram = "telegram"
	ChannelSNS      = "sns"
)

// Lead is a contact a visitor shared with the chatbot.
type Lead struct {
	RequestID string
	UserID    string
	Contacts  []string
	Message   string
	Language  model.Language
	Page      string
}

// NewLead extracts the contact details from a request.
func NewLead(requestID string, req model.ConversationRequest, contacts []string) Lead {
	return Lead{
		RequestID: requestID,
		UserID:    req.UserID,
		Contacts:  contacts,
		Message:   req.Message,
		Language:  req.Language,
		Page:      req.CurrentPage,
	}
}

// Text is the human-readable notification body.
func (l Lead) Text() string {
	var b strings.Builder
	b.WriteString("📥 New lead from the website chat\n")
	fmt.Fprintf(&b, "Contact: %s\n", strings.Join(l.Contacts, ", "))
	fmt.Fprintf(&b, "User: %s | Language: %s | Page: %s\n", l.UserID, l.Language, l.Page)
	fmt.Fprintf(&b, "Message: %s", l.Message)
	return b.String()
}

// Notifier forwards a lead to a channel watched by a human.
type Notifier interface {
	Notify(ctx context.Context, lead Lead) error
}

// LogNotifier writes leads to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, lead Lead) error {
	logx.Ctx(ctx).Info().
		Strs("contacts", lead.Contacts).
		Str("user_id", lead.UserID).
		Str("page", lead.Page).
		Msg("lead received")
	return nil
}

// Instrumented bounds every notification by timeout and records the outcome.
type Instrumented struct {
	next    Notifier
	channel string
	timeout time.Duration
}

func NewInstrumented(next Notifier, channel string, timeout time.Duration) *Instrumented {
	return &Instrumented{next: next, channel: channel, timeout: timeout}
}

func (n *Instrumented) Notify(ctx context.Context, lead Lead) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	err := n.next.Notify(ctx, lead)
	metrics.Notifications.WithLabelValues(n.channel, metrics.Result(err)).Inc()
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("channel", n.channel).Msg("failed to forward lead")
	}
	return err
}

// New builds the configured channel.
func New(ctx context.Context, cfg model.NotifyConfig, timeout time.Duration) (Notifier, error) {
	var (
		next Notifier
		err  error
	)
	switch cfg.Channel {
	case ChannelLog, "":
		next = LogNotifier{}
	case ChannelTelegram:
		next, err = NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
	case ChannelSNS:
		next, err = NewSNSNotifier(ctx, cfg.AWSRegion, cfg.SNSTopicARN)
	default:
		return nil, fmt.Errorf("unknown NOTIFY_CHANNEL %q", cfg.Channel)
	}
	if err != nil {
		return nil, err
	}
	channel := cfg.Channel
	if channel == "" {
		channel = ChannelLog
	}
	return NewInstrumented(next, channel, timeout), nil
}

// Package alert sends operator-facing notifications (circuit breaker trips,
// ledger write failures) to Slack, grounded on the teacher's slack-go/slack
// dependency (slack/bot) and converted to Slack's markdown dialect via
// snormore/slackmd, with failures additionally captured to Sentry via
// getsentry/sentry-go for later triage.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/slack-go/slack"
	"github.com/snormore/slackmd"
)

// SlackPoster is the narrow Slack surface alert depends on.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, string, error)
}

// Notifier posts operator alerts to a configured Slack channel and captures
// the underlying error to Sentry.
type Notifier struct {
	client  SlackPoster
	channel string
	log     *slog.Logger
}

// New constructs a Notifier. token is the Slack bot token; channel is the
// destination channel ID.
func New(token, channel string, log *slog.Logger) *Notifier {
	return &Notifier{client: slack.New(token), channel: channel, log: log}
}

// NewWithClient constructs a Notifier against an already-built SlackPoster,
// for testing.
func NewWithClient(client SlackPoster, channel string, log *slog.Logger) *Notifier {
	return &Notifier{client: client, channel: channel, log: log}
}

// CircuitBreakerTripped notifies that the worker's consecutive-failure
// circuit breaker has opened.
func (n *Notifier) CircuitBreakerTripped(ctx context.Context, epoch uint64, consecutiveFailures uint32, cause error) {
	body := fmt.Sprintf(
		"**Worker circuit breaker tripped**\n- epoch: `%d`\n- consecutive failures: `%d`\n- cause: `%v`",
		epoch, consecutiveFailures, cause,
	)
	n.post(ctx, body)
	sentry.CaptureException(fmt.Errorf("worker circuit breaker tripped at epoch %d after %d consecutive failures: %w", epoch, consecutiveFailures, cause))
}

// LedgerWriteFailed notifies that a ledger write did not complete after
// retries.
func (n *Notifier) LedgerWriteFailed(ctx context.Context, description string, cause error) {
	body := fmt.Sprintf("**Ledger write failed**\n- record: `%s`\n- cause: `%v`", description, cause)
	n.post(ctx, body)
	sentry.CaptureException(fmt.Errorf("ledger write failed for %s: %w", description, cause))
}

func (n *Notifier) post(ctx context.Context, markdown string) {
	if n.client == nil || n.channel == "" {
		return
	}
	text := slackmd.Convert(markdown)
	if _, _, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false)); err != nil {
		if n.log != nil {
			n.log.Error("alert: failed to post slack message", "err", err)
		}
	}
}

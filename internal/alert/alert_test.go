package alert

import (
	"context"
	"errors"
	"testing"

	"github.com/slack-go/slack"
)

type fakeSlack struct {
	posts int
	err   error
}

func (f *fakeSlack) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, string, error) {
	f.posts++
	return "C1", "123.456", "", f.err
}

func TestNotifier_CircuitBreakerTripped_Posts(t *testing.T) {
	fake := &fakeSlack{}
	n := NewWithClient(fake, "#alerts", nil)
	n.CircuitBreakerTripped(context.Background(), 42, 5, errors.New("boom"))
	if fake.posts != 1 {
		t.Fatalf("expected one post, got %d", fake.posts)
	}
}

func TestNotifier_NoopWithoutChannel(t *testing.T) {
	fake := &fakeSlack{}
	n := NewWithClient(fake, "", nil)
	n.LedgerWriteFailed(context.Background(), "reward input epoch 1", errors.New("boom"))
	if fake.posts != 0 {
		t.Fatalf("expected no post without a configured channel, got %d", fake.posts)
	}
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/slack-go/slack"
)

// SlackNotifier posts scheduled run failures to a channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier returns nil when token or channel is empty. A nil notifier is a no-op.
func NewSlackNotifier(token, channel string, options ...slack.Option) *SlackNotifier {
	if token == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{
		client:  slack.New(token, options...),
		channel: channel,
	}
}

func (s *SlackNotifier) NotifyFailure(ctx context.Context, scheduleID uint, target string, runErr error) error {
	if s == nil {
		return nil
	}

	attachment := slack.Attachment{
		Color: "#ff0000",
		Title: "Scheduled report failed",
		Text:  runErr.Error(),
		Fields: []slack.AttachmentField{
			{
				Title: "Schedule",
				Value: strconv.FormatUint(uint64(scheduleID), 10),
				Short: true,
			},
			{
				Title: "Recipient",
				Value: target,
				Short: true,
			},
		},
		Footer: "Sales Dashboard",
		Ts:     json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
	}

	if _, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionAttachments(attachment)); err != nil {
		return fmt.Errorf("failed to post slack message: %w", err)
	}
	return nil
}

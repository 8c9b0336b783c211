// Package slack delivers run reports to a Slack channel: the mrkdwn summary
// as a message, then the PDF as a file upload.
package slack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slack-go/slack"
)

// maxSectionLen is Slack's limit for a section block's text.
const maxSectionLen = 3000

const reportTitle = "Hermes Feed Analysis Report"

// Notifier posts report summaries and PDF attachments to a channel.
type Notifier struct {
	client  *slack.Client
	channel string
}

// New creates a Slack notifier. If token or channel is empty, Send is a
// no-op. Extra options are passed to the underlying client (tests point
// OptionAPIURL at a fake server).
func New(token, channel string, opts ...slack.Option) *Notifier {
	if token == "" || channel == "" {
		return &Notifier{}
	}
	return &Notifier{
		client:  slack.New(token, opts...),
		channel: channel,
	}
}

// Enabled reports whether a destination is configured.
func (n *Notifier) Enabled() bool { return n.client != nil }

// Send posts the summary message, then uploads the attachment when a path is
// given. With no destination configured it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, summary, attachmentPath string) error {
	if n.client == nil {
		return nil
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, truncate(summary, maxSectionLen), false, false),
			nil, nil,
		),
	}
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(reportTitle, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}

	if attachmentPath == "" {
		return nil
	}
	info, err := os.Stat(attachmentPath)
	if err != nil {
		return fmt.Errorf("slack: stat attachment: %w", err)
	}
	_, err = n.client.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:  n.channel,
		File:     attachmentPath,
		FileSize: int(info.Size()),
		Filename: filepath.Base(attachmentPath),
		Title:    reportTitle,
	})
	if err != nil {
		return fmt.Errorf("slack: upload report: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"syslog-relay/config"
	"syslog-relay/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"go.uber.org/fx"
)

var ErrUploadFailure = errors.New("chat upload failed")

const (
	ActionCreateTicket = "create_ticket"
	ActionChartWindow  = "chart_window"
	actionSSH          = "ssh_device"
	alertActionsBlock  = "alert_actions"

	CreateTicketText = "Create Jira Ticket"
)

// Client is the chat platform as seen by the notifier and the dispatcher.
type Client interface {
	// PostMessage posts msg and returns the platform thread reference.
	PostMessage(ctx context.Context, msg model.ChatMessage) (string, error)
	// UploadFile uploads a local file and returns its platform id.
	UploadFile(ctx context.Context, path, title string) (string, error)
	// SharePublicURL makes an uploaded file public and returns its link.
	SharePublicURL(ctx context.Context, fileID string) (string, error)
	// ChannelID is the default alert channel.
	ChannelID() string
}

type slackClient struct {
	api         *slack.Client
	channelName string
	channelID   string
}

// NewSlackClient builds the Slack client and joins the configured channel
// when the application starts.
func NewSlackClient(lc fx.Lifecycle, cfg *config.Config) Client {
	c := newSlackClient(slack.New(cfg.Slack.UserOAuthToken), cfg.Slack.Channel)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return c.joinChannel(ctx)
		},
	})
	return c
}

func newSlackClient(api *slack.Client, channel string) *slackClient {
	return &slackClient{
		api:         api,
		channelName: strings.TrimPrefix(strings.TrimSpace(channel), "#"),
	}
}

func (c *slackClient) ChannelID() string {
	return c.channelID
}

// joinChannel resolves the configured channel name and joins it. A missing
// channel is fatal.
func (c *slackClient) joinChannel(ctx context.Context) error {
	if c.channelName == "" {
		return errors.New("slack channel is not configured")
	}
	params := &slack.GetConversationsParameters{
		Types:           []string{"public_channel", "private_channel"},
		ExcludeArchived: true,
		Limit:           200,
	}
	for {
		channels, cursor, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return fmt.Errorf("list slack channels: %w", err)
		}
		for _, ch := range channels {
			if ch.Name == c.channelName || ch.ID == c.channelName {
				c.channelID = ch.ID
				break
			}
		}
		if c.channelID != "" || cursor == "" {
			break
		}
		params.Cursor = cursor
	}
	if c.channelID == "" {
		return fmt.Errorf("slack channel %q not found", c.channelName)
	}

	if _, _, _, err := c.api.JoinConversationContext(ctx, c.channelID); err != nil {
		return fmt.Errorf("join slack channel %s: %w", c.channelName, err)
	}
	log.Info().Str("channel", c.channelName).Str("channel_id", c.channelID).Msg("Joined Slack channel")
	return nil
}

func (c *slackClient) PostMessage(ctx context.Context, msg model.ChatMessage) (string, error) {
	channelID := msg.ChannelID
	if channelID == "" {
		channelID = c.channelID
	}

	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if !msg.Markdown {
		opts = append(opts, slack.MsgOptionDisableMarkdown())
	}
	if msg.Controls != nil {
		opts = append(opts, slack.MsgOptionBlocks(alertBlocks(msg)...))
	}
	if len(msg.Attachments) > 0 {
		attachments := make([]slack.Attachment, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			attachments = append(attachments, slack.Attachment{ImageURL: a.ImageURL, Text: a.Text})
		}
		opts = append(opts, slack.MsgOptionAttachments(attachments...))
	}
	if msg.ThreadRef != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadRef))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("post slack message to %s: %w", channelID, err)
	}
	return ts, nil
}

func (c *slackClient) UploadFile(ctx context.Context, path, title string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailure, err)
	}
	summary, err := c.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		File:     path,
		FileSize: int(info.Size()),
		Filename: filepath.Base(path),
		Title:    title,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailure, err)
	}
	return summary.ID, nil
}

func (c *slackClient) SharePublicURL(ctx context.Context, fileID string) (string, error) {
	file, _, _, err := c.api.ShareFilePublicURLContext(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("%w: share %s: %v", ErrUploadFailure, fileID, err)
	}
	if file.PermalinkPublic == "" {
		return "", fmt.Errorf("%w: file %s has no public link", ErrUploadFailure, fileID)
	}
	return file.PermalinkPublic, nil
}

// alertBlocks lays out an alert: the rendered record followed by the ticket
// button, the ssh link and the chart window menu.
func alertBlocks(msg model.ChatMessage) []slack.Block {
	ctl := msg.Controls

	ticket := slack.NewButtonBlockElement(ActionCreateTicket, ctl.RecordID,
		slack.NewTextBlockObject(slack.PlainTextType, CreateTicketText, false, false))
	ticket = ticket.WithStyle(slack.StylePrimary)

	ssh := slack.NewButtonBlockElement(actionSSH, ctl.SourceIP,
		slack.NewTextBlockObject(slack.PlainTextType, "SSH to "+ctl.SourceIP, false, false))
	ssh.URL = "ssh://" + ctl.SourceIP
	ssh = ssh.WithStyle(slack.StyleDanger)

	options := make([]*slack.OptionBlockObject, 0, len(ctl.Windows))
	for _, w := range ctl.Windows {
		options = append(options, slack.NewOptionBlockObject(ctl.RecordID,
			slack.NewTextBlockObject(slack.PlainTextType, w.OptionText(), false, false), nil))
	}
	overflow := slack.NewOverflowBlockElement(ActionChartWindow, options...)

	body := msg.Body
	if body == "" {
		body = msg.Text
	}
	return []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, body, false, false), nil, nil),
		slack.NewDividerBlock(),
		slack.NewActionBlock(alertActionsBlock, ticket, ssh, overflow),
	}
}

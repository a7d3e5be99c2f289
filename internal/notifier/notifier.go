package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/chat"
	"syslog-relay/internal/model"
	"syslog-relay/internal/repository"

	"github.com/rs/zerolog/log"
)

var ErrNotificationFailure = errors.New("notification failed")

const (
	ReasonBelowThreshold = "below_threshold"
	ReasonDuplicate      = "duplicate"
	ReasonPostFailed     = "post_failed"
)

// NotifyResult reports what Notify did with a record.
type NotifyResult struct {
	Posted     bool
	Suppressed bool
	Reason     string
	ThreadRef  string
}

// Reply is a thread follow-up: text, image attachments, or both.
type Reply struct {
	Text        string
	Attachments []model.ChatAttachment
}

type Notifier interface {
	// Notify posts an alert for record when its severity passes the
	// threshold. Post failures are logged, never returned.
	Notify(ctx context.Context, record *model.LogRecord) NotifyResult
	NotifyThread(ctx context.Context, threadRef, channelID string, reply Reply) error
}

type dedupKey struct {
	sourceIP string
	severity int
	message  string
}

type notifier struct {
	client    chat.Client
	store     repository.Store
	threshold int
	window    time.Duration
	now       func() time.Time

	mu     sync.Mutex
	recent map[dedupKey]time.Time
}

func NewNotifier(cfg *config.Config, client chat.Client, store repository.Store) Notifier {
	return &notifier{
		client:    client,
		store:     store,
		threshold: cfg.Notifier.SeverityThreshold,
		window:    cfg.Notifier.DedupWindow,
		now:       time.Now,
		recent:    make(map[dedupKey]time.Time),
	}
}

func (n *notifier) Notify(ctx context.Context, record *model.LogRecord) NotifyResult {
	if record.SeverityLevel > n.threshold {
		log.Debug().
			Str("record_id", record.ID).
			Int("level", record.SeverityLevel).
			Int("threshold", n.threshold).
			Msg("Alert suppressed below threshold")
		return NotifyResult{Suppressed: true, Reason: ReasonBelowThreshold}
	}

	key := dedupKey{sourceIP: record.SourceIP, severity: record.SeverityLevel, message: record.Message}
	if !n.reserve(key) {
		log.Info().Str("record_id", record.ID).Str("source_ip", record.SourceIP).Msg("Duplicate alert suppressed")
		return NotifyResult{Suppressed: true, Reason: ReasonDuplicate}
	}

	msg := model.ChatMessage{
		ChannelID: n.client.ChannelID(),
		Text:      RenderIssueText(record),
		Markdown:  true,
		Body:      RenderChatText(record),
		Controls: &model.AlertControls{
			RecordID: record.ID,
			SourceIP: record.SourceIP,
			Windows:  model.ChartWindows,
		},
	}
	threadRef, err := n.client.PostMessage(ctx, msg)
	if err != nil {
		n.release(key)
		err = fmt.Errorf("%w: %v", ErrNotificationFailure, err)
		log.Error().Err(err).Str("record_id", record.ID).Str("source_ip", record.SourceIP).Msg("Failed to post alert")
		return NotifyResult{Reason: ReasonPostFailed}
	}

	if err := n.store.UpdateThreadRef(ctx, record.ID, threadRef); err != nil {
		log.Error().Err(err).Str("record_id", record.ID).Str("thread_ref", threadRef).Msg("Failed to store thread reference")
	} else {
		record.ThreadRef = threadRef
	}
	log.Info().Str("record_id", record.ID).Str("thread_ref", threadRef).Msg("Alert posted")
	return NotifyResult{Posted: true, ThreadRef: threadRef}
}

func (n *notifier) NotifyThread(ctx context.Context, threadRef, channelID string, reply Reply) error {
	if channelID == "" {
		channelID = n.client.ChannelID()
	}
	_, err := n.client.PostMessage(ctx, model.ChatMessage{
		ChannelID:   channelID,
		Text:        reply.Text,
		Markdown:    true,
		ThreadRef:   threadRef,
		Attachments: reply.Attachments,
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrNotificationFailure, err)
		log.Error().Err(err).Str("thread_ref", threadRef).Str("channel_id", channelID).Msg("Failed to post thread reply")
		return err
	}
	return nil
}

// reserve claims key for the dedup window. It returns false when an alert
// with the same key was posted or is being posted within the window.
func (n *notifier) reserve(key dedupKey) bool {
	if n.window <= 0 {
		return true
	}
	now := n.now()
	n.mu.Lock()
	defer n.mu.Unlock()
	for k, at := range n.recent {
		if now.Sub(at) >= n.window {
			delete(n.recent, k)
		}
	}
	if _, ok := n.recent[key]; ok {
		return false
	}
	n.recent[key] = now
	return true
}

func (n *notifier) release(key dedupKey) {
	if n.window <= 0 {
		return
	}
	n.mu.Lock()
	delete(n.recent, key)
	n.mu.Unlock()
}

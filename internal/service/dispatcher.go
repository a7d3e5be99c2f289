package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"syslog-relay/internal/chart"
	"syslog-relay/internal/chat"
	"syslog-relay/internal/model"
	"syslog-relay/internal/notifier"
	"syslog-relay/internal/repository"
	"syslog-relay/internal/ticketing"

	"github.com/rs/zerolog/log"
)

const (
	ticketSummaryFormat = "P1 - Error message from %s"
	ticketEnvironment   = "Backbone Network"
	ticketPriority      = "Highest"
	ticketReplyFormat   = "JIRA bug created here %s"
)

var ticketLabels = []string{"OPS", "NETWORK"}

// ActionDispatcher carries out user interactions on posted alerts.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, task model.ActionTask) error
}

type actionDispatcher struct {
	store      repository.Store
	aggregator Aggregator
	renderer   chart.Renderer
	chat       chat.Client
	tickets    ticketing.Client
	notifier   notifier.Notifier
	now        func() time.Time
}

func NewActionDispatcher(
	store repository.Store,
	aggregator Aggregator,
	renderer chart.Renderer,
	chatClient chat.Client,
	tickets ticketing.Client,
	n notifier.Notifier,
) ActionDispatcher {
	return &actionDispatcher{
		store:      store,
		aggregator: aggregator,
		renderer:   renderer,
		chat:       chatClient,
		tickets:    tickets,
		notifier:   n,
		now:        time.Now,
	}
}

// ClassifyAction maps an interaction to a task kind. It returns false for
// interactions that need no work, such as the ssh link button.
func ClassifyAction(event *model.InteractionEvent) (model.ActionKind, bool) {
	action := event.FirstAction()
	if action == nil {
		return "", false
	}
	switch {
	case action.ActionID == chat.ActionCreateTicket:
		return model.ActionTicket, true
	case action.ActionID == chat.ActionChartWindow:
		return model.ActionChart, true
	case action.Type == "button" && action.Text != nil && action.Text.Text == chat.CreateTicketText:
		return model.ActionTicket, true
	case action.Type == "overflow" && action.SelectedOption != nil:
		return model.ActionChart, true
	}
	return "", false
}

func (d *actionDispatcher) Dispatch(ctx context.Context, task model.ActionTask) error {
	var err error
	switch task.Kind {
	case model.ActionTicket:
		err = d.createTicket(ctx, &task.Event)
	case model.ActionChart:
		err = d.sendChart(ctx, &task.Event)
	default:
		err = fmt.Errorf("unknown action kind %q", task.Kind)
	}
	if err != nil {
		log.Error().Err(err).Str("kind", string(task.Kind)).Str("channel_id", task.Event.Channel.ID).Msg("Action failed")
	}
	return err
}

func (d *actionDispatcher) createTicket(ctx context.Context, event *model.InteractionEvent) error {
	action := event.FirstAction()
	if action == nil || action.Value == "" {
		return errors.New("ticket action carries no record id")
	}
	record, err := d.store.GetLogRecord(ctx, action.Value)
	if err != nil {
		return fmt.Errorf("load record for ticket: %w", err)
	}

	url, err := d.tickets.CreateTicket(ctx, model.TicketRequest{
		Summary:     fmt.Sprintf(ticketSummaryFormat, record.SourceIP),
		Description: notifier.RenderIssueText(record),
		Labels:      ticketLabels,
		Priority:    ticketPriority,
		Environment: ticketEnvironment,
	})
	if err != nil {
		return err
	}
	log.Info().Str("record_id", record.ID).Str("ticket_url", url).Msg("Ticket created")

	return d.notifier.NotifyThread(ctx, record.ThreadRef, event.Channel.ID, notifier.Reply{
		Text: fmt.Sprintf(ticketReplyFormat, url),
	})
}

func (d *actionDispatcher) sendChart(ctx context.Context, event *model.InteractionEvent) error {
	action := event.FirstAction()
	if action == nil {
		return errors.New("chart action carries no action")
	}
	recordID, label := action.Value, ""
	if opt := action.SelectedOption; opt != nil {
		label = opt.Text.Text
		if opt.Value != "" {
			recordID = opt.Value
		}
	}
	window, err := model.LookupChartWindow(label)
	if err != nil {
		return err
	}
	if recordID == "" {
		return errors.New("chart action carries no record id")
	}
	record, err := d.store.GetLogRecord(ctx, recordID)
	if err != nil {
		return fmt.Errorf("load record for chart: %w", err)
	}

	end := d.now().UTC()
	start := end.AddDate(0, 0, -window.Days)
	series, err := d.aggregator.Aggregate(ctx, record.SourceIP, start, end)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s for %s", window.Title(), record.SourceIP)
	path, err := d.renderer.Render(ctx, title, series)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove rendered chart")
		}
	}()

	fileID, err := d.chat.UploadFile(ctx, path, title)
	if err != nil {
		return err
	}
	link, err := d.chat.SharePublicURL(ctx, fileID)
	if err != nil {
		return err
	}
	log.Info().Str("record_id", record.ID).Str("window", window.Code).Str("file_id", fileID).Msg("Chart shared")

	return d.notifier.NotifyThread(ctx, record.ThreadRef, event.Channel.ID, notifier.Reply{
		Attachments: []model.ChatAttachment{{ImageURL: link, Text: title}},
	})
}

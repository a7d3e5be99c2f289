package notifier

import (
	"fmt"

	"syslog-relay/internal/model"
)

// RenderIssueText renders a record for the issue tracker's wiki markup.
func RenderIssueText(r *model.LogRecord) string {
	return renderRecord(r, fmt.Sprintf("{code:bash} %s {code}", r.Message))
}

// RenderChatText renders a record with the log line in a fenced block.
func RenderChatText(r *model.LogRecord) string {
	return renderRecord(r, fmt.Sprintf("```%s```", r.Message))
}

func renderRecord(r *model.LogRecord, errorLog string) string {
	return fmt.Sprintf("*Device* - %s\n*Time* - %s UTC\n*Error Log* - %s\n", r.SourceIP, r.Timestamp, errorLog)
}

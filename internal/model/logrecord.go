package model

import "time"

// LogRecord is one parsed syslog event. It is immutable once saved except
// for ThreadRef, which the notifier sets exactly once.
type LogRecord struct {
	ID            string    `json:"id"`
	SourceIP      string    `json:"src_ip"`
	SourcePort    int       `json:"src_port"`
	Timestamp     string    `json:"time"`
	SeverityLevel int       `json:"level"`
	Message       string    `json:"syslog"`
	ThreadRef     string    `json:"thread_ts,omitempty"`
	CreatedAt     time.Time `json:"date_created"`
}

// HasThread reports whether the record has been posted to chat.
func (r *LogRecord) HasThread() bool {
	return r.ThreadRef != ""
}

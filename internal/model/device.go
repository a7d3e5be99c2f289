package model

import "time"

// Device aggregates every record received from one source IP.
type Device struct {
	ID         string    `json:"id"`
	SourceIP   string    `json:"src_ip"`
	SourcePort int       `json:"src_port"`
	LogCount   int       `json:"syslog_count"`
	Logs       []string  `json:"syslogs"` // LogRecord ids in arrival order
	CreatedAt  time.Time `json:"date_created"`
}

package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syslog-relay/internal/parser"
)

func TestSyslogParser_Parse(t *testing.T) {
	logParser := parser.NewSyslogParser()

	tests := []struct {
		name        string
		payload     string
		expectError bool
		timestamp   string
		level       int
		message     string
	}{
		{
			name:      "Plain triplet",
			payload:   "router: Jan 1 12:00:00 core-sw: bgp - 3 - disk full",
			timestamp: "Jan 1 12:00:00 core-sw",
			level:     3,
			message:   "disk full",
		},
		{
			name:      "Label then timestamp",
			payload:   "kern: 2024/01/01 00:00:00: eth0 - 1 - link down\n",
			timestamp: "2024/01/01 00:00:00",
			level:     1,
			message:   "link down",
		},
		{
			name:      "Quoted segments with dashes in header",
			payload:   `"Jan 2 00:00:00 host: 1 - link down" - "1" - "eth0 down"`,
			timestamp: "00:00 host",
			level:     1,
			message:   "eth0 down",
		},
		{
			name:      "Dash inside body is kept",
			payload:   "sys: 10:00: x - 0 - fan-1 failed - replace",
			timestamp: "10:00",
			level:     0,
			message:   "fan-1 failed - replace",
		},
		{
			name:      "No second colon keeps the whole remainder",
			payload:   "label:Jan 5 - 4 - msg",
			timestamp: "Jan 5",
			level:     4,
			message:   "msg",
		},
		{
			name:      "Quoted header with ISO date",
			payload:   `"host: 2024-01-02 10:00:00: link" - "5" - "eth0 down"`,
			timestamp: "2024-01-02 10:00:00",
			level:     5,
			message:   "eth0 down",
		},
		{
			name:      "Unquoted header with ISO date",
			payload:   "host: 2024-01-02 10:00:00: link - 5 - eth0 down",
			timestamp: "2024-01-02 10:00:00",
			level:     5,
			message:   "eth0 down",
		},
		{
			name:        "Quoted negative severity",
			payload:     `"sw: t: x" - "-1" - "neg"`,
			expectError: true,
		},
		{
			name:        "Unquoted negative severity",
			payload:     "sw: t: x - -1 - neg",
			expectError: true,
		},
		{
			name:        "Too few segments",
			payload:     "Jan 1 12:00:00 host: 3 - disk full",
			expectError: true,
		},
		{
			name:        "Severity not an integer",
			payload:     "host: t: x - high - disk full",
			expectError: true,
		},
		{
			name:        "Header without colon",
			payload:     "no label - 3 - disk full",
			expectError: true,
		},
		{
			name:        "Empty body",
			payload:     "host: t: x - 3 - ",
			expectError: true,
		},
		{
			name:        "Empty payload",
			payload:     "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := logParser.Parse([]byte(tt.payload), "10.0.0.7", 514)

			if tt.expectError {
				assert.ErrorIs(t, err, parser.ErrMalformedRecord)
				assert.Nil(t, record)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, record)
			assert.Equal(t, tt.timestamp, record.Timestamp)
			assert.Equal(t, tt.level, record.SeverityLevel)
			assert.Equal(t, tt.message, record.Message)
			assert.Equal(t, "10.0.0.7", record.SourceIP)
			assert.Equal(t, 514, record.SourcePort)
			assert.Empty(t, record.ID)
			assert.Empty(t, record.ThreadRef)
		})
	}
}

func TestExtractTimestampIgnoresMessage(t *testing.T) {
	logParser := parser.NewSyslogParser()
	var seen []string
	for _, body := range []string{"disk full", "fan: stalled", "a - b - c", "x"} {
		record, err := logParser.Parse([]byte("edge: Mar 3 08:15: host - 2 - "+body), "10.0.0.1", 514)
		require.NoError(t, err)
		seen = append(seen, record.Timestamp)
	}
	for _, ts := range seen {
		assert.Equal(t, "Mar 3 08:15", ts)
	}
}

package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"syslog-relay/internal/model"

	"github.com/rs/zerolog/log"
)

var ErrMalformedRecord = errors.New("malformed syslog record")

const segmentDelimiter = "-"

// quotedRecord matches the fully quoted wire form `"<header>" - "<severity>" - "<message>"`.
var quotedRecord = regexp.MustCompile(`(?s)^"(.*)"\s*-\s*"(-?\d+)"\s*-\s*"(.*)"$`)

type LogParser interface {
	Parse(payload []byte, sourceIP string, sourcePort int) (*model.LogRecord, error)
}

// syslogParser understands `<label>: <timestamp>: <text> - <severity> - <message>`.
type syslogParser struct{}

func NewSyslogParser() LogParser {
	return &syslogParser{}
}

// Parse splits the payload into header, severity and body. A fully quoted
// record is matched as a whole. Otherwise the severity is the first integer
// segment standing between free-standing delimiters, so a '-' inside a date,
// a word or the body does not shift the fields.
func (p *syslogParser) Parse(payload []byte, sourceIP string, sourcePort int) (*model.LogRecord, error) {
	line := strings.Trim(string(payload), " \t\r\n\x00")

	header, level, body, err := splitQuoted(line)
	if errors.Is(err, errNotQuoted) {
		header, level, body, err = splitSegments(line)
	}
	if err != nil {
		log.Debug().Err(err).Str("line", line).Msg("Rejected syslog line")
		return nil, err
	}
	if level < 0 {
		return nil, fmt.Errorf("%w: negative severity %d", ErrMalformedRecord, level)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: empty message body", ErrMalformedRecord)
	}

	timestamp, err := ExtractTimestamp(header)
	if err != nil {
		return nil, err
	}

	return &model.LogRecord{
		SourceIP:      sourceIP,
		SourcePort:    sourcePort,
		Timestamp:     timestamp,
		SeverityLevel: level,
		Message:       body,
	}, nil
}

var errNotQuoted = errors.New("record is not in quoted form")

func splitQuoted(line string) (string, int, string, error) {
	m := quotedRecord.FindStringSubmatch(line)
	if m == nil {
		return "", 0, "", errNotQuoted
	}
	level, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: severity %q: %v", ErrMalformedRecord, m[2], err)
	}
	return strings.TrimSpace(m[1]), level, strings.TrimSpace(m[3]), nil
}

func splitSegments(line string) (string, int, string, error) {
	segments := strings.Split(line, segmentDelimiter)
	if len(segments) < 3 {
		return "", 0, "", fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedRecord, len(segments))
	}

	for i := 1; i < len(segments)-1; i++ {
		if !freeStanding(segments[i-1], segments[i+1]) {
			continue
		}
		n, err := strconv.Atoi(cleanSegment(segments[i]))
		if err != nil {
			continue
		}
		// "x - -1 - y" splits into a blank segment ahead of the digits.
		if i >= 2 && strings.TrimSpace(segments[i-1]) == "" {
			n = -n
		}
		header := cleanSegment(strings.Join(segments[:i], segmentDelimiter))
		body := cleanSegment(strings.Join(segments[i+1:], segmentDelimiter))
		return header, n, body, nil
	}
	return "", 0, "", fmt.Errorf("%w: no integer severity segment", ErrMalformedRecord)
}

// freeStanding reports whether the delimiters around a segment are separated
// from neighbouring text, unlike the dashes of 2024-01-02 or fan-1.
func freeStanding(before, after string) bool {
	return endsLoose(before) && startsLoose(after)
}

func endsLoose(s string) bool {
	return s == "" || strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\t") || strings.HasSuffix(s, `"`)
}

func startsLoose(s string) bool {
	return s == "" || strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\t") || strings.HasPrefix(s, `"`)
}

// ExtractTimestamp returns the text after the first ':' of the header and
// before the next ": ".
func ExtractTimestamp(header string) (string, error) {
	_, rest, found := strings.Cut(header, ":")
	if !found {
		return "", fmt.Errorf("%w: header has no label separator", ErrMalformedRecord)
	}
	if ts, _, ok := strings.Cut(rest, ": "); ok {
		rest = ts
	}
	return strings.TrimSpace(rest), nil
}

func cleanSegment(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

package model

// ChatMessage is an outbound post. Controls is set only for the initial
// alert; ThreadRef only for replies.
type ChatMessage struct {
	ChannelID   string
	Text        string
	Markdown    bool
	ThreadRef   string
	Body        string // chat-rendered body shown above the controls
	Attachments []ChatAttachment
	Controls    *AlertControls
}

type ChatAttachment struct {
	ImageURL string `json:"image_url"`
	Text     string `json:"text"`
}

// AlertControls describes the interactive affordances attached to an alert.
type AlertControls struct {
	RecordID string
	SourceIP string
	Windows  []ChartWindow
}

// TicketRequest is the issue created for a log record.
type TicketRequest struct {
	Summary     string
	Description string
	Labels      []string
	Priority    string
	Environment string
}

package organizer

import (
	"time"

	"github.com/teemow/propertyinbox/internal/report"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerHTTP     Trigger = "http"
	TriggerSchedule Trigger = "schedule"
	TriggerCLI      Trigger = "cli"
	TriggerMCP      Trigger = "mcp"
)

// Run status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Failure is one message that could not be handled.
type Failure struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// ReportNote records the report outcome of one floorplan attachment.
type ReportNote struct {
	MessageID   string        `json:"message_id"`
	Folder      string        `json:"folder"`
	Attachment  string        `json:"attachment"`
	Status      report.Status `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	DocumentURL string        `json:"document_url,omitempty"`
}

// RunSummary is the externally observable result of one run. Counts of
// messages: Matched, Organized, Failed, AlreadyProcessed. Counts of
// attachments: SkippedDuplicate, AttachmentsSaved, MalformedAttachments.
// ReportGenerated counts written report documents.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Trigger    Trigger   `json:"trigger"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Window     string    `json:"window"`

	Matched          int `json:"matched"`
	Organized        int `json:"organized"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	ReportGenerated  int `json:"report_generated"`
	Failed           int `json:"failed"`

	AlreadyProcessed     int `json:"already_processed"`
	AttachmentsSaved     int `json:"attachments_saved"`
	MalformedAttachments int `json:"malformed_attachments"`

	Failures []Failure     `json:"failures"`
	Reports  []ReportNote  `json:"reports,omitempty"`
	Folders  []FolderEntry `json:"folders,omitempty"`

	Error string `json:"error,omitempty"`
}

// FolderEntry is a folder a message was filed into.
type FolderEntry struct {
	MessageID string `json:"message_id"`
	Name      string `json:"name"`
	ID        string `json:"id"`
	URL       string `json:"url,omitempty"`
	Created   bool   `json:"created"`
}

func (s *RunSummary) fail(messageID string, err error) {
	s.Failed++
	s.Failures = append(s.Failures, Failure{MessageID: messageID, Error: err.Error()})
}

// Duration is the wall time of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

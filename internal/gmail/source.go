package gmail

import (
	"context"
	"fmt"
	"sync"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/propertyinbox/internal/property"
)

// Source adapts a Client to the organizer's mail source: it enumerates
// candidate messages for every mail kind, maps them onto property.Message and
// applies the processed label.
type Source struct {
	client         *Client
	processedLabel string
	subjects       map[property.MailKind]string

	// mu guards the lazily resolved label; runs may share a Source.
	mu         sync.Mutex
	labelID    string
	labelNames map[string]string
}

// NewSource creates a Source. subjects overrides the subject filter per mail
// kind; missing kinds use MailKind.SubjectFilter.
func NewSource(client *Client, processedLabel string, subjects map[property.MailKind]string) *Source {
	return &Source{
		client:         client,
		processedLabel: processedLabel,
		subjects:       subjects,
	}
}

// ProcessedLabel returns the name of the processed label.
func (s *Source) ProcessedLabel() string {
	return s.processedLabel
}

// Queries returns the search query for each mail kind, in processing order.
func (s *Source) Queries(window time.Duration) []KindQuery {
	var queries []KindQuery
	for _, kind := range property.AllKinds() {
		subject := s.subjects[kind]
		if subject == "" {
			subject = kind.SubjectFilter()
		}
		queries = append(queries, KindQuery{Kind: kind, Query: BuildQuery(subject, window, s.processedLabel)})
	}
	return queries
}

// KindQuery pairs a mail kind with its search query.
type KindQuery struct {
	Kind  property.MailKind
	Query string
}

// ListCandidates returns unprocessed messages of every kind received within
// window. A message matched by several kinds is returned once, under the
// first kind that matched.
func (s *Source) ListCandidates(ctx context.Context, window time.Duration) ([]property.MessageRef, error) {
	seen := make(map[string]bool)
	var refs []property.MessageRef
	for _, q := range s.Queries(window) {
		err := s.client.ForeachMessage(ctx, q.Query, func(m *gmail.Message) error {
			if seen[m.Id] {
				return nil
			}
			seen[m.Id] = true
			refs = append(refs, property.MessageRef{ID: m.Id, Kind: q.Kind})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// Fetch retrieves a message and maps it onto property.Message.
func (s *Source) Fetch(ctx context.Context, ref property.MessageRef) (*property.Message, error) {
	_, names, err := s.ensureLabel(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := s.client.GetMessage(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	return ParseMessage(msg, ref.Kind, names), nil
}

// Download returns the content of an attachment.
func (s *Source) Download(ctx context.Context, att property.Attachment) ([]byte, error) {
	if att.Content != nil {
		return att.Content, nil
	}
	return s.client.GetAttachment(ctx, att.MessageID, att.ID)
}

// MarkProcessed applies the processed label to a message.
func (s *Source) MarkProcessed(ctx context.Context, messageID string) error {
	id, _, err := s.ensureLabel(ctx)
	if err != nil {
		return err
	}
	return s.client.AddLabel(ctx, messageID, id)
}

// ensureLabel resolves the processed label once per Source and caches the
// mailbox label names. The returned map is never written after it is
// published. A failed resolution is retried on the next call.
func (s *Source) ensureLabel(ctx context.Context) (string, map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.labelID != "" {
		return s.labelID, s.labelNames, nil
	}
	id, err := s.client.EnsureLabel(ctx, s.processedLabel)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve processed label: %w", err)
	}
	labels, err := s.client.Labels(ctx)
	if err != nil {
		return "", nil, err
	}
	names := make(map[string]string, len(labels)+1)
	for name, l := range labels {
		names[l.Id] = name
	}
	names[id] = s.processedLabel

	s.labelID = id
	s.labelNames = names
	return id, names, nil
}

// ParseMessage maps a full Gmail message onto property.Message. Label IDs are
// translated through labelNames; unknown IDs are kept as they are.
func ParseMessage(msg *gmail.Message, kind property.MailKind, labelNames map[string]string) *property.Message {
	out := &property.Message{
		ID:      msg.Id,
		Kind:    kind,
		Subject: HeaderValue(msg, "Subject"),
		Body:    PlainBody(msg),
	}
	for _, a := range Attachments(msg) {
		out.Attachments = append(out.Attachments, property.Attachment{
			MessageID: a.MessageID,
			ID:        a.AttachmentID,
			Filename:  a.Filename,
			MimeType:  a.MimeType,
			Size:      a.Size,
			Content:   a.Data,
		})
	}
	for _, id := range msg.LabelIds {
		if name, ok := labelNames[id]; ok {
			out.Labels = append(out.Labels, name)
		} else {
			out.Labels = append(out.Labels, id)
		}
	}
	return out
}

package docs

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/teemow/propertyinbox/internal/instrumentation"
)

const (
	// DocumentMimeType is the Drive MIME type of a native Google Doc
	DocumentMimeType = "application/vnd.google-apps.document"

	styleTitle    = "TITLE"
	styleHeading2 = "HEADING_2"

	documentURLBase = "https://docs.google.com/document/d/"
)

// Client wraps the Google Docs and Drive API services
type Client struct {
	docsService  *docs.Service
	driveService *drive.Service
	metrics      *instrumentation.Metrics
}

// NewClient creates a Docs client. Authentication is supplied through opts
// and shared by the Docs and Drive services.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	docsService, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docs service: %w", err)
	}

	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{
		docsService:  docsService,
		driveService: driveService,
	}, nil
}

// WithMetrics sets the metrics recorder used for API call metrics.
func (c *Client) WithMetrics(m *instrumentation.Metrics) *Client {
	c.metrics = m
	return c
}

func (c *Client) observe(ctx context.Context, service, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, service, operation)
	start := time.Now()
	err := fn(ctx)
	c.metrics.RecordGoogleAPIOperation(ctx, service, operation, instrumentation.StatusFor(err), time.Since(start))
	instrumentation.EndSpan(span, err)
	return err
}

// CreateDocument creates a Google Doc named title inside folderID and fills
// it with the title and sections.
func (c *Client) CreateDocument(ctx context.Context, folderID, title string, sections []Section) (*Document, error) {
	if folderID == "" {
		return nil, fmt.Errorf("folderID is required")
	}
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	var file *drive.File
	err := c.observe(ctx, instrumentation.ServiceDrive, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		file, err = c.driveService.Files.Create(&drive.File{
			Name:     title,
			MimeType: DocumentMimeType,
			Parents:  []string{folderID},
		}).Context(ctx).Fields("id, name, webViewLink").Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create document %q: %w", title, err)
	}

	req := &docs.BatchUpdateDocumentRequest{Requests: BuildRequests(title, sections)}
	err = c.observe(ctx, instrumentation.ServiceDocs, instrumentation.OperationUpdate, func(ctx context.Context) error {
		_, err := c.docsService.Documents.BatchUpdate(file.Id, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		// Leave no empty report document behind.
		c.deleteFile(context.WithoutCancel(ctx), file.Id)
		return nil, fmt.Errorf("failed to write document %s: %w", file.Id, err)
	}

	url := file.WebViewLink
	if url == "" {
		url = documentURLBase + file.Id + "/edit"
	}
	return &Document{ID: file.Id, Title: title, URL: url}, nil
}

// deleteFile removes a half-written document. Cleanup errors are dropped in
// favour of the write error that triggered them.
func (c *Client) deleteFile(ctx context.Context, fileID string) {
	_ = c.observe(ctx, instrumentation.ServiceDrive, instrumentation.OperationDelete, func(ctx context.Context) error {
		return c.driveService.Files.Delete(fileID).Context(ctx).Do()
	})
}

// BuildRequests renders the title and sections into one InsertText request
// followed by the paragraph style updates for the title and each heading.
func BuildRequests(title string, sections []Section) []*docs.Request {
	var b strings.Builder
	var styles []*docs.Request

	// Docs bodies start at index 1
	index := int64(1)
	appendParagraph := func(text, style string) {
		text += "\n"
		n := utf16Len(text)
		if style != "" {
			styles = append(styles, &docs.Request{
				UpdateParagraphStyle: &docs.UpdateParagraphStyleRequest{
					Range:          &docs.Range{StartIndex: index, EndIndex: index + n},
					ParagraphStyle: &docs.ParagraphStyle{NamedStyleType: style},
					Fields:         "namedStyleType",
				},
			})
		}
		b.WriteString(text)
		index += n
	}

	appendParagraph(title, styleTitle)
	for _, s := range sections {
		if s.Heading != "" {
			appendParagraph(s.Heading, styleHeading2)
		}
		for _, line := range s.Lines {
			appendParagraph(line, "")
		}
	}

	requests := []*docs.Request{{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: 1},
			Text:     b.String(),
		},
	}}
	return append(requests, styles...)
}

func utf16Len(s string) int64 {
	return int64(len(utf16.Encode([]rune(s))))
}

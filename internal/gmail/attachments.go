package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
	"golang.org/x/net/html"

	"github.com/teemow/propertyinbox/internal/instrumentation"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024
)

// AttachmentInfo represents an attachment's metadata
type AttachmentInfo struct {
	MessageID    string
	PartID       string
	AttachmentID string
	Filename     string
	MimeType     string
	Size         int64
	// Data is set for small attachments the API returns inline instead of
	// by attachment ID.
	Data []byte
}

// Attachments lists the attachments of a fully fetched message in MIME order.
// Parts with a filename but undecodable inline data are skipped.
func Attachments(msg *gmail.Message) []AttachmentInfo {
	var attachments []AttachmentInfo
	walkParts(msg.Payload, func(part *gmail.MessagePart) {
		if part.Filename == "" || part.Body == nil {
			return
		}
		info := AttachmentInfo{
			MessageID:    msg.Id,
			PartID:       part.PartId,
			AttachmentID: part.Body.AttachmentId,
			Filename:     SanitizeFilename(part.Filename),
			MimeType:     part.MimeType,
			Size:         part.Body.Size,
		}
		if info.AttachmentID == "" {
			if part.Body.Data == "" {
				return
			}
			data, err := decodeData(part.Body.Data)
			if err != nil {
				return
			}
			info.Data = data
			if info.Size == 0 {
				info.Size = int64(len(data))
			}
		}
		attachments = append(attachments, info)
	})
	return attachments
}

// GetAttachment downloads and decodes the content of an attachment.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	var attachment *gmail.MessagePartBody
	err := c.observe(ctx, instrumentation.OperationDownload, func(ctx context.Context) error {
		var err error
		attachment, err = c.svc.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	if attachment.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", attachment.Size, MaxAttachmentSize)
	}

	data, err := decodeData(attachment.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}

// PlainBody returns the text body of a message. The first text/plain part
// wins; otherwise the first text/html part is converted to text.
func PlainBody(msg *gmail.Message) string {
	var plain, htmlBody string
	walkParts(msg.Payload, func(part *gmail.MessagePart) {
		if part.Filename != "" || part.Body == nil || part.Body.Data == "" {
			return
		}
		switch {
		case plain == "" && strings.HasPrefix(part.MimeType, "text/plain"):
			if data, err := decodeData(part.Body.Data); err == nil {
				plain = string(data)
			}
		case htmlBody == "" && strings.HasPrefix(part.MimeType, "text/html"):
			if data, err := decodeData(part.Body.Data); err == nil {
				htmlBody = string(data)
			}
		}
	})
	if plain != "" {
		return plain
	}
	if htmlBody != "" {
		return htmlToText(htmlBody)
	}
	return msg.Snippet
}

// decodeData decodes base64url-encoded data (Gmail API uses RFC 4648
// base64url), falling back to standard and unpadded encodings.
func decodeData(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
	}
	var err error
	for _, enc := range encodings {
		var data []byte
		if data, err = enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, err
}

// htmlToText extracts visible text from an HTML body, one line per block.
func htmlToText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "style", "script", "head", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4":
				b.WriteString("\n")
			}
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// SanitizeFilename sanitizes a filename to prevent path traversal attacks
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}

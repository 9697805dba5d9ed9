package property

import "strings"

// MailKind identifies which family of listing mail a message belongs to.
type MailKind string

const (
	// KindFloorplan is a sales-floorplan (販売図面) mail.
	KindFloorplan MailKind = "floorplan"

	// KindMap is a residential-map / road-price-map (住宅地図・路線価図) mail.
	KindMap MailKind = "map"
)

// SubjectFilter returns the subject term used to search for this kind of mail.
func (k MailKind) SubjectFilter() string {
	switch k {
	case KindFloorplan:
		return "販売図面"
	case KindMap:
		return "住宅地図・路線価図"
	}
	return ""
}

// AllKinds lists every mail kind in processing order.
func AllKinds() []MailKind {
	return []MailKind{KindFloorplan, KindMap}
}

// MessageRef is the lightweight handle returned when enumerating candidates.
type MessageRef struct {
	ID   string
	Kind MailKind
}

// Message is a fetched mail message. It is not modified after fetching; labels
// change only through the mail source.
type Message struct {
	ID          string
	Kind        MailKind
	Subject     string
	Body        string
	Attachments []Attachment
	Labels      []string
}

// HasLabel reports whether the message carries the named label.
func (m *Message) HasLabel(name string) bool {
	for _, l := range m.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// AttachmentNames returns the filenames of all attachments in order.
func (m *Message) AttachmentNames() []string {
	names := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		names = append(names, a.Filename)
	}
	return names
}

// Attachment describes one attachment of a Message. Content is downloaded
// separately through the mail source.
type Attachment struct {
	// MessageID is the owning message (back-reference only)
	MessageID string

	// ID is the provider-specific attachment identifier
	ID string

	// Filename is the sanitized attachment filename
	Filename string

	// MimeType is the declared content type
	MimeType string

	// Size is the declared size in bytes
	Size int64

	// Content holds data sent inline with the message; nil when the
	// attachment must be downloaded by ID
	Content []byte `json:"-"`
}

// Folder is a storage folder handle.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// StoredFile is a file already present in a storage folder.
type StoredFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

var floorplanMarkers = []string{"販売図面", "hanbaizumen"}

// IsFloorplan reports whether an attachment should be treated as a sales
// floorplan. Filenames carrying a floorplan marker always qualify; otherwise a
// PDF or image attached to a floorplan mail qualifies.
func IsFloorplan(kind MailKind, filename, mimeType string) bool {
	lower := strings.ToLower(filename)
	for _, marker := range floorplanMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	if kind != KindFloorplan {
		return false
	}
	mimeType = strings.ToLower(mimeType)
	return mimeType == "application/pdf" ||
		strings.HasPrefix(mimeType, "image/") ||
		strings.HasSuffix(lower, ".pdf")
}

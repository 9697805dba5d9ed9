package property

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// DefaultPlaceholder replaces a station or property number that could not be
// extracted.
const DefaultPlaceholder = "unknown"

var (
	filenameNumber = regexp.MustCompile(`(?i)Hanbaizumen_(\d+)`)
	labelledNumber = regexp.MustCompile(`物件番号\s*[:：]\s*(\d+(?:-\d+)*)`)
	urlNumber      = regexp.MustCompile(`hid=(\d+)`)

	labelledStation = regexp.MustCompile(`駅\s*[:：]\s*([^\s,、駅]+)`)
	suffixStation   = regexp.MustCompile(`([^\s　,、・/()（）「」【】\[\]:：0-9]+?)駅`)
)

// Key identifies a property folder.
type Key struct {
	Station string
	Number  string
	Date    time.Time
}

// FolderName renders the folder name YYYYMMDD_<station>_<number>. Date is
// formatted in its own location, so callers pass a date already converted to
// the processing zone.
func (k Key) FolderName() string {
	return k.Date.Format("20060102") + "_" + k.Station + "_" + k.Number
}

// Extractor derives a Key from message text. It never fails: a missing field
// becomes the placeholder.
type Extractor struct {
	placeholder string
}

// NewExtractor creates an Extractor. An empty placeholder selects
// DefaultPlaceholder.
func NewExtractor(placeholder string) *Extractor {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &Extractor{placeholder: placeholder}
}

// Placeholder returns the token used for missing fields.
func (e *Extractor) Placeholder() string {
	return e.placeholder
}

// Extract builds a Key for msg processed at date.
func (e *Extractor) Extract(msg *Message, date time.Time) Key {
	var filenames []string
	if msg.Kind == KindFloorplan || msg.Kind == "" {
		filenames = msg.AttachmentNames()
	}
	number := ExtractNumber(msg.Subject, msg.Body, filenames)
	station := ExtractStation(msg.Subject, msg.Body)

	if number == "" {
		number = e.placeholder
	}
	if station == "" {
		station = e.placeholder
	}
	return Key{Station: station, Number: number, Date: date}
}

// ExtractNumber returns the property number found in the attachment
// filenames, the labelled 物件番号 field or a listing URL, in that order.
func ExtractNumber(subject, body string, filenames []string) string {
	for _, name := range filenames {
		if m := filenameNumber.FindStringSubmatch(normalize(name)); m != nil {
			return m[1]
		}
	}
	text := normalize(subject + "\n" + body)
	if m := labelledNumber.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := urlNumber.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ExtractStation returns the nearest-station name from a labelled 駅 field,
// or else from the first token carrying the 駅 suffix in subject then body.
func ExtractStation(subject, body string) string {
	text := normalize(subject + "\n" + body)
	if m := labelledStation.FindStringSubmatch(text); m != nil {
		if s := cleanStation(m[1]); s != "" {
			return s
		}
	}
	for _, part := range []string{normalize(subject), normalize(body)} {
		for _, m := range suffixStation.FindAllStringSubmatch(part, -1) {
			if s := cleanStation(m[1]); s != "" {
				return s
			}
		}
	}
	return ""
}

func cleanStation(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "駅")
	// 物件番号 labels and the like are not station names
	if strings.ContainsAny(s, "=?&") || strings.Contains(s, "最寄") {
		return ""
	}
	return sanitizeComponent(s)
}

// sanitizeComponent strips characters that would break a folder name.
func sanitizeComponent(s string) string {
	return strings.NewReplacer("/", "", "\\", "", "_", "").Replace(s)
}

// normalize folds full-width ASCII (digits, colons, letters) to half-width.
func normalize(s string) string {
	return width.Fold.String(s)
}

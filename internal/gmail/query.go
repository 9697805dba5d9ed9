package gmail

import (
	"fmt"
	"strings"
	"time"
)

// BuildQuery builds the search query for candidate messages: the subject
// term, a recency window, an attachment requirement and the exclusion of
// already labelled messages.
func BuildQuery(subject string, window time.Duration, excludeLabel string) string {
	parts := []string{"subject:" + quoteTerm(subject)}
	if w := FormatWindow(window); w != "" {
		parts = append(parts, "newer_than:"+w)
	}
	parts = append(parts, "has:attachment")
	if excludeLabel != "" {
		parts = append(parts, "-label:"+labelTerm(excludeLabel))
	}
	return strings.Join(parts, " ")
}

// FormatWindow renders a duration in Gmail's newer_than syntax. Whole days
// use "d"; anything else is rounded up to whole hours. Non-positive windows
// yield "".
func FormatWindow(window time.Duration) string {
	if window <= 0 {
		return ""
	}
	if window%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", window/(24*time.Hour))
	}
	hours := (window + time.Hour - 1) / time.Hour
	return fmt.Sprintf("%dh", hours)
}

func quoteTerm(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, "") + `"`
	}
	return s
}

// labelTerm renders a label name the way Gmail search expects it: spaces and
// slashes become hyphens.
func labelTerm(name string) string {
	return strings.NewReplacer(" ", "-", "/", "-").Replace(name)
}

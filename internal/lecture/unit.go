// Package lecture holds the domain model for lectures and lecture units.
package lecture

import (
	"strings"
	"time"
)

// Unit is a single lecture unit. A unit may carry a video source, a PDF
// attachment, or both; tutorial units are never processed.
type Unit struct {
	ID                int64
	LectureID         int64
	Title             string
	Tutorial          bool
	VideoSource       string
	AttachmentLink    string
	AttachmentVersion int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasVideo reports whether the unit carries a video source.
func (u *Unit) HasVideo() bool {
	return u != nil && strings.TrimSpace(u.VideoSource) != ""
}

// HasPDF reports whether the unit's attachment is a PDF.
func (u *Unit) HasPDF() bool {
	if u == nil {
		return false
	}
	link := strings.ToLower(strings.TrimSpace(u.AttachmentLink))
	return strings.HasSuffix(link, ".pdf")
}

// HasContent reports whether the unit carries anything the pipeline could
// process.
func (u *Unit) HasContent() bool {
	return u.HasVideo() || u.HasPDF()
}

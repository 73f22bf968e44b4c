package domain

import (
	"errors"
	"strings"
)

// AttachmentKind is the tagged variant of an attachment. It is derived
// from the MIME type once, at the upload boundary, never at render time.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentAudio AttachmentKind = "audio"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment describes one uploaded blob referenced by a message.
// Messages persist these as an ordered list; an absent list is stored
// as NULL, never as an empty list.
type Attachment struct {
	Path string         `json:"path"`
	URL  string         `json:"url"`
	Type string         `json:"type"` // MIME type
	Name string         `json:"name"`
	Kind AttachmentKind `json:"kind"`
}

var ErrInvalidAttachment = errors.New("attachment missing required fields")

// KindFromMIME maps a MIME type onto the attachment variant.
func KindFromMIME(mime string) AttachmentKind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mime, "video/"):
		return AttachmentVideo
	case strings.HasPrefix(mime, "audio/"):
		return AttachmentAudio
	default:
		return AttachmentFile
	}
}

// Validate checks the required fields and normalizes the kind tag from
// the MIME type when it is missing or inconsistent.
func (a *Attachment) Validate() error {
	if a.Path == "" || a.URL == "" || a.Type == "" || a.Name == "" {
		return ErrInvalidAttachment
	}
	switch a.Kind {
	case AttachmentImage, AttachmentVideo, AttachmentAudio, AttachmentFile:
	default:
		a.Kind = KindFromMIME(a.Type)
	}
	return nil
}

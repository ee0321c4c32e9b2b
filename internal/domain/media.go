package domain

// MediaAttachment is one still image sent with a single turn. It is never persisted.
type MediaAttachment struct {
	MimeType string
	// Data is the base64 encoded image.
	Data string
}

// DataURL returns the attachment as a data URL.
func (m MediaAttachment) DataURL() string {
	return "data:" + m.MimeType + ";base64," + m.Data
}

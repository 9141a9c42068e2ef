package store

import "time"

// Metadata describes one stored firmware image.
type Metadata struct {
	ContentHash string    `json:"content_hash"`
	Size        int       `json:"size"`
	Sources     []Source  `json:"sources"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Source records where an image was obtained from or sent to.
type Source struct {
	Device    string    `json:"device,omitempty"`
	Slot      *uint8    `json:"slot,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"` // "import", "upload"
	Filename  string    `json:"filename,omitempty"`
}

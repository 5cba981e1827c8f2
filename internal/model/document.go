package model

import "time"

// Document represents one file attached to a claim, with its OCR output.
type Document struct {
	CreatedAt     time.Time
	ID            string
	ClaimID       string
	FileName      string
	MimeType      string
	OCRText       string
	OCRData       map[string]string
	OCRConfidence float64
	OCRExtracted  bool
}

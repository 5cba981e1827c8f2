package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claimtrust/claimtrust/internal/model"
)

// SaveDocument inserts or replaces a document record with its OCR output.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *model.Document) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return err
	}

	ocrData := doc.OCRData
	if ocrData == nil {
		ocrData = map[string]string{}
	}
	dataJSON, err := marshalJSON(ocrData)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (
			id, claim_id, file_name, mime_type, ocr_extracted,
			ocr_text, ocr_confidence, ocr_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ocr_extracted = excluded.ocr_extracted,
			ocr_text = excluded.ocr_text,
			ocr_confidence = excluded.ocr_confidence,
			ocr_data = excluded.ocr_data
	`,
		doc.ID,
		doc.ClaimID,
		doc.FileName,
		doc.MimeType,
		boolToInt(doc.OCRExtracted),
		doc.OCRText,
		doc.OCRConfidence,
		dataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	return nil
}

// GetDocumentsByClaim returns all documents for a claim in creation order.
func (s *SQLiteStorage) GetDocumentsByClaim(ctx context.Context, claimID string) ([]model.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(claimID, "claimID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, file_name, mime_type, ocr_extracted,
		       ocr_text, ocr_confidence, ocr_data, created_at
		FROM documents
		WHERE claim_id = ?
		ORDER BY created_at ASC, id ASC
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		var extracted int
		var dataJSON string

		if scanErr := rows.Scan(
			&doc.ID, &doc.ClaimID, &doc.FileName, &doc.MimeType, &extracted,
			&doc.OCRText, &doc.OCRConfidence, &dataJSON, &doc.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan document: %w", scanErr)
		}

		doc.OCRExtracted = extracted == 1
		doc.OCRData = map[string]string{}
		if dataJSON != "" {
			if jsonErr := json.Unmarshal([]byte(dataJSON), &doc.OCRData); jsonErr != nil {
				return nil, fmt.Errorf("failed to decode OCR data for document %s: %w", doc.ID, jsonErr)
			}
		}

		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

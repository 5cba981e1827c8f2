package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidClaim   = errors.New("invalid claim")
	ErrInvalidDoc     = errors.New("invalid document")
	ErrInvalidResult  = errors.New("invalid scoring result")
	ErrInvalidOrg     = errors.New("invalid organization")
	ErrInvalidEvent   = errors.New("invalid audit event")
	ErrInvalidHistory = errors.New("invalid trust history entry")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateClaim(claim *model.Claim) error {
	if claim == nil {
		return fmt.Errorf("%w: claim", ErrNilParameter)
	}
	if claim.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidClaim)
	}
	if claim.OrganizationID == "" {
		return fmt.Errorf("%w: missing organization ID", ErrInvalidClaim)
	}
	if claim.ClaimedAmount < 0 {
		return fmt.Errorf("%w: negative claimed amount", ErrInvalidClaim)
	}
	return nil
}

func validateDocument(doc *model.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document", ErrNilParameter)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidDoc)
	}
	if doc.ClaimID == "" {
		return fmt.Errorf("%w: missing claim ID", ErrInvalidDoc)
	}
	if doc.FileName == "" {
		return fmt.Errorf("%w: missing file name", ErrInvalidDoc)
	}
	return nil
}

func validateResult(result *model.EnsembleResult) error {
	if result == nil {
		return fmt.Errorf("%w: result", ErrNilParameter)
	}
	if result.ClaimID == "" {
		return fmt.Errorf("%w: missing claim ID", ErrInvalidResult)
	}
	if result.TrustScore < 0 || result.TrustScore > 100 {
		return fmt.Errorf("%w: trust score out of range: %.2f", ErrInvalidResult, result.TrustScore)
	}
	if result.ModelVersion == "" {
		return fmt.Errorf("%w: missing model version", ErrInvalidResult)
	}
	return nil
}

func validateOrganization(org *model.Organization) error {
	if org == nil {
		return fmt.Errorf("%w: organization", ErrNilParameter)
	}
	if org.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidOrg)
	}
	if org.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidOrg)
	}
	return nil
}

func validateEvent(event *service.AuditEvent) error {
	if event == nil {
		return fmt.Errorf("%w: event", ErrNilParameter)
	}
	if event.EventType == "" {
		return fmt.Errorf("%w: missing event type", ErrInvalidEvent)
	}
	if event.ResourceID == "" {
		return fmt.Errorf("%w: missing resource ID", ErrInvalidEvent)
	}
	return nil
}

func validateHistoryEntry(entry *model.TrustHistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if entry.OrganizationID == "" {
		return fmt.Errorf("%w: missing organization ID", ErrInvalidHistory)
	}
	return nil
}

// Package model defines the core domain models used throughout the application.
package model

import "time"

// ClaimStatus tracks where a claim sits in its review lifecycle.
type ClaimStatus string

// Claim status constants.
const (
	StatusDraft             ClaimStatus = "draft"
	StatusSubmitted         ClaimStatus = "submitted"
	StatusOCRProcessing     ClaimStatus = "ocr_processing"
	StatusAnalyzing         ClaimStatus = "analyzing"
	StatusPendingReview     ClaimStatus = "pending_review"
	StatusComplianceReview  ClaimStatus = "compliance_review"
	StatusApproved          ClaimStatus = "approved"
	StatusPartiallyApproved ClaimStatus = "partially_approved"
	StatusRejected          ClaimStatus = "rejected"
)

// Recommendation is the categorical outcome of an ensemble scoring run.
type Recommendation string

// Recommendation constants, ordered from most to least favorable.
const (
	RecommendAutoApprove       Recommendation = "AUTO_APPROVE"
	RecommendApproveWithReview Recommendation = "APPROVE_WITH_REVIEW"
	RecommendComplianceReview  Recommendation = "COMPLIANCE_REVIEW_REQUIRED"
	RecommendHighRiskHold      Recommendation = "HIGH_RISK_HOLD"
)

// WorkflowStage labels which review phase a claim is routed through.
type WorkflowStage string

// Workflow stage constants.
const (
	StagePreSubmission    WorkflowStage = "pre_submission_revalidation"
	StageAutoApproval     WorkflowStage = "auto_approval_review"
	StageComplianceReview WorkflowStage = "compliance_review"
)

// Claim represents a single insurance claim and its live scoring fields.
type Claim struct {
	AdmissionDate  time.Time
	DischargeDate  time.Time
	AnalyzedAt     time.Time
	SLADeadline    time.Time
	CreatedAt      time.Time
	ID             string
	ClaimNumber    string
	OrganizationID string
	PatientID      string
	Status         ClaimStatus
	DiagnosisCodes []string
	ProcedureCodes []string

	// Live scoring fields, overwritten on every analysis (latest wins).
	Recommendation     Recommendation
	WorkflowStage      WorkflowStage
	ReviewerSuggestion string
	MatchedPolicies    []string
	DetectedRisks      []string
	ViolationFlags     []string
	Explanation        *Explanation

	ClaimedAmount        float64
	ApprovedAmount       float64
	TrustScore           float64
	FraudProbability     float64
	AnomalyScore         float64
	ApprovalLikelihood   float64
	Confidence           float64
	PatientAge           int
	AutoApprovalEligible bool
	SLABreached          bool
	Analyzed             bool
}

// Explanation is the explainability payload merged into a claim after scoring.
type Explanation struct {
	LastRevalidatedAt    time.Time       `json:"last_revalidated_at"`
	ExtractedFacts       *ExtractedFacts `json:"extracted_facts,omitempty"`
	ExplanationText      string          `json:"explanation_text"`
	ReviewerSuggestion   string          `json:"reviewer_suggestion"`
	WorkflowStage        WorkflowStage   `json:"workflow_stage"`
	SourceDocumentID     string          `json:"source_document_id,omitempty"`
	MatchedPolicies      []string        `json:"matched_policies"`
	DetectedRisks        []string        `json:"detected_risks"`
	ViolationFlags       []string        `json:"violation_flags"`
	RiskFactors          RiskFactors     `json:"risk_factors"`
	AutoApprovalEligible bool            `json:"auto_approval_eligible"`
}

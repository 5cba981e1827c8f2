// Package feature converts raw claim records and aggregated OCR data into the
// fixed-shape numeric feature vector consumed by the scoring models.
package feature

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

// monthDay is a year-independent calendar date.
type monthDay struct {
	Month time.Month
	Day   int
}

// holidayDates are admission dates treated as holiday admissions.
var holidayDates = map[monthDay]struct{}{
	{time.January, 1}:   {},
	{time.July, 4}:      {},
	{time.November, 27}: {},
	{time.November, 28}: {},
	{time.December, 25}: {},
}

// highValuePrefixes are leading procedure-code digits for surgical and complex
// procedures.
var highValuePrefixes = map[byte]struct{}{
	'3': {}, '4': {}, '5': {}, '6': {}, '7': {},
}

// requiredOCRFields must be present in aggregated OCR data for a claim to be
// considered fully documented.
var requiredOCRFields = []string{"patient_name", "admission_date", "diagnosis", "total_amount"}

const (
	duplicateWindowDays   = 90
	readmissionWindowDays = 30
	procedureCodeLimit    = 3
	dobLayout             = "1/2/2006"
)

// TextSignals carries scores derived from document text analysis into the
// feature vector.
type TextSignals struct {
	Inconsistency float64
	Urgency       float64
}

// Builder constructs ClaimFeatures from a claim and its aggregated OCR data.
// Failed lookups degrade to neutral defaults; the builder never aborts on
// partial data.
type Builder struct {
	stats service.StatsSource
	now   func() time.Time
}

// NewBuilder creates a feature builder backed by the given statistics source.
func NewBuilder(stats service.StatsSource) *Builder {
	return &Builder{
		stats: stats,
		now:   time.Now,
	}
}

// Build returns a fully-populated feature record. Every field is defined;
// anything that cannot be computed gets its documented neutral default.
func (b *Builder) Build(ctx context.Context, claim *model.Claim, ocrData map[string]string, text TextSignals) model.ClaimFeatures {
	features := model.DefaultFeatures()
	features.ClaimedAmount = claim.ClaimedAmount
	features.ProcedureCount = float64(len(claim.ProcedureCodes))
	features.DiagnosisCount = float64(len(claim.DiagnosisCodes))
	features.TextInconsistency = text.Inconsistency
	features.TextUrgency = text.Urgency

	stats, err := b.stats.GetOrgStats(ctx, claim.OrganizationID)
	if err != nil {
		slog.Warn("Could not fetch organization stats, using defaults",
			"org_id", claim.OrganizationID,
			"error", err)
		stats = model.DefaultOrgStats()
	}
	features.OrgTrustScore = stats.TrustScore
	features.OrgHistoricalFraudRate = stats.HistoricalFraudRate
	features.OrgClaimVolume30d = float64(stats.ClaimVolume30d)

	if stats.AvgClaimAmount > 0 {
		features.AmountVsOrgAvg = claim.ClaimedAmount / stats.AvgClaimAmount
	}

	if procAvg := b.procedureAverage(ctx, claim.ProcedureCodes); procAvg > 0 {
		features.AmountVsProcedureAvg = claim.ClaimedAmount / procAvg
	}

	features.LengthOfStay = float64(lengthOfStay(claim.AdmissionDate, claim.DischargeDate))

	if !claim.AdmissionDate.IsZero() {
		weekday := claim.AdmissionDate.Weekday()
		if weekday == time.Saturday || weekday == time.Sunday {
			features.WeekendAdmission = 1
		}
		key := monthDay{claim.AdmissionDate.Month(), claim.AdmissionDate.Day()}
		if _, ok := holidayDates[key]; ok {
			features.HolidayAdmission = 1
		}
	}

	for _, code := range claim.ProcedureCodes {
		if code == "" {
			continue
		}
		if _, ok := highValuePrefixes[code[0]]; ok {
			features.HighValueProcedures = 1
			break
		}
	}

	if b.hasDuplicate(ctx, claim) {
		features.DuplicateClaim = 1
	}
	if b.hasRapidReadmission(ctx, claim) {
		features.RapidReadmission = 1
	}

	completeness, missing := ocrCompleteness(ocrData)
	features.OCRCompleteness = completeness
	features.MissingFields = float64(missing)

	features.PatientAge = float64(b.patientAge(claim, ocrData))

	return features
}

// procedureAverage looks up the platform average amount for the claim's first
// procedure codes, returning 0 when unavailable.
func (b *Builder) procedureAverage(ctx context.Context, codes []string) float64 {
	if len(codes) == 0 {
		return 0
	}
	if len(codes) > procedureCodeLimit {
		codes = codes[:procedureCodeLimit]
	}

	avg, err := b.stats.ProcedureAverageAmount(ctx, codes)
	if err != nil {
		slog.Warn("Could not fetch procedure average", "error", err)
		return 0
	}
	return avg
}

func (b *Builder) hasDuplicate(ctx context.Context, claim *model.Claim) bool {
	if claim.PatientID == "" || len(claim.ProcedureCodes) == 0 {
		return false
	}

	since := b.now().UTC().AddDate(0, 0, -duplicateWindowDays)
	dup, err := b.stats.HasDuplicateClaim(ctx, claim.ID, claim.PatientID, claim.ProcedureCodes, since)
	if err != nil {
		slog.Warn("Duplicate claim check failed", "claim_id", claim.ID, "error", err)
		return false
	}
	return dup
}

func (b *Builder) hasRapidReadmission(ctx context.Context, claim *model.Claim) bool {
	if claim.PatientID == "" || claim.AdmissionDate.IsZero() {
		return false
	}

	from := claim.AdmissionDate.AddDate(0, 0, -readmissionWindowDays)
	readmit, err := b.stats.HasDischargeWithin(ctx, claim.ID, claim.PatientID, from, claim.AdmissionDate)
	if err != nil {
		slog.Warn("Readmission check failed", "claim_id", claim.ID, "error", err)
		return false
	}
	return readmit
}

// patientAge prefers an OCR-extracted date of birth, falling back to the
// claim's own metadata.
func (b *Builder) patientAge(claim *model.Claim, ocrData map[string]string) int {
	if dob := strings.TrimSpace(ocrData["dob"]); dob != "" {
		if parsed, err := time.Parse(dobLayout, dob); err == nil {
			age := int(b.now().UTC().Sub(parsed).Hours() / 24 / 365)
			if age > 0 {
				return age
			}
		}
	}
	return claim.PatientAge
}

// lengthOfStay is discharge minus admission in whole days, floored at zero.
// Missing or inverted dates yield zero.
func lengthOfStay(admission, discharge time.Time) int {
	if admission.IsZero() || discharge.IsZero() {
		return 0
	}
	days := int(discharge.Sub(admission).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// ocrCompleteness returns the fraction of required fields present and the
// count of missing ones.
func ocrCompleteness(ocrData map[string]string) (float64, int) {
	present := 0
	for _, field := range requiredOCRFields {
		if strings.TrimSpace(ocrData[field]) != "" {
			present++
		}
	}
	missing := len(requiredOCRFields) - present
	score := math.Round(float64(present)/float64(len(requiredOCRFields))*1000) / 1000
	return score, missing
}

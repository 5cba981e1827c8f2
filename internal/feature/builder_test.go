package feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtrust/claimtrust/internal/model"
)

type fakeStats struct {
	stats        model.OrgStats
	statsErr     error
	procAvg      float64
	procErr      error
	duplicate    bool
	readmission  bool
	checkErr     error
	procCalls    [][]string
	orgCalls     int
	dupSince     time.Time
	readmitFrom  time.Time
	readmitTo    time.Time
	dupCalled    bool
	readmitCalls int
}

func (f *fakeStats) GetOrgStats(_ context.Context, _ string) (model.OrgStats, error) {
	f.orgCalls++
	if f.statsErr != nil {
		return model.DefaultOrgStats(), f.statsErr
	}
	return f.stats, nil
}

func (f *fakeStats) ProcedureAverageAmount(_ context.Context, codes []string) (float64, error) {
	f.procCalls = append(f.procCalls, codes)
	return f.procAvg, f.procErr
}

func (f *fakeStats) HasDuplicateClaim(_ context.Context, _, _ string, _ []string, since time.Time) (bool, error) {
	f.dupCalled = true
	f.dupSince = since
	return f.duplicate, f.checkErr
}

func (f *fakeStats) HasDischargeWithin(_ context.Context, _, _ string, from, to time.Time) (bool, error) {
	f.readmitCalls++
	f.readmitFrom = from
	f.readmitTo = to
	return f.readmission, f.checkErr
}

func testClaim() *model.Claim {
	return &model.Claim{
		ID:             "claim-1",
		OrganizationID: "org-1",
		PatientID:      "patient-1",
		PatientAge:     45,
		ClaimedAmount:  12000,
		AdmissionDate:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), // a Monday
		DischargeDate:  time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		ProcedureCodes: []string{"27447", "99213"},
		DiagnosisCodes: []string{"M17.11"},
	}
}

func fullOCRData() map[string]string {
	return map[string]string{
		"patient_name":   "Jane Roe",
		"admission_date": "3/2/2026",
		"diagnosis":      "M17.11",
		"total_amount":   "12000",
	}
}

func TestBuildPopulatesStatsAndRatios(t *testing.T) {
	stats := &fakeStats{
		stats: model.OrgStats{
			TrustScore:          72.5,
			ClaimVolume30d:      40,
			AvgClaimAmount:      6000,
			HistoricalFraudRate: 0.02,
		},
		procAvg: 4000,
	}
	builder := NewBuilder(stats)

	features := builder.Build(context.Background(), testClaim(), fullOCRData(), TextSignals{})

	assert.Equal(t, 72.5, features.OrgTrustScore)
	assert.Equal(t, 0.02, features.OrgHistoricalFraudRate)
	assert.Equal(t, 40.0, features.OrgClaimVolume30d)
	assert.Equal(t, 2.0, features.AmountVsOrgAvg)
	assert.Equal(t, 3.0, features.AmountVsProcedureAvg)
	assert.Equal(t, 2.0, features.ProcedureCount)
	assert.Equal(t, 1.0, features.DiagnosisCount)
	assert.Equal(t, 5.0, features.LengthOfStay)
	assert.Equal(t, 1.0, features.OCRCompleteness)
	assert.Equal(t, 0.0, features.MissingFields)
}

func TestBuildUsesDefaultsWhenStatsUnavailable(t *testing.T) {
	stats := &fakeStats{statsErr: errors.New("database locked")}
	builder := NewBuilder(stats)

	features := builder.Build(context.Background(), testClaim(), fullOCRData(), TextSignals{})

	assert.Equal(t, 50.0, features.OrgTrustScore)
	assert.Equal(t, 0.05, features.OrgHistoricalFraudRate)
	assert.Equal(t, 1.0, features.AmountVsOrgAvg)
}

func TestBuildNeutralRatioWhenNoAverages(t *testing.T) {
	stats := &fakeStats{stats: model.DefaultOrgStats()}
	builder := NewBuilder(stats)

	features := builder.Build(context.Background(), testClaim(), fullOCRData(), TextSignals{})

	assert.Equal(t, 1.0, features.AmountVsOrgAvg)
	assert.Equal(t, 1.0, features.AmountVsProcedureAvg)
}

func TestBuildLimitsProcedureCodesForAverage(t *testing.T) {
	stats := &fakeStats{stats: model.DefaultOrgStats(), procAvg: 1000}
	builder := NewBuilder(stats)

	claim := testClaim()
	claim.ProcedureCodes = []string{"11111", "22222", "33333", "44444", "55555"}
	builder.Build(context.Background(), claim, fullOCRData(), TextSignals{})

	require.Len(t, stats.procCalls, 1)
	assert.Equal(t, []string{"11111", "22222", "33333"}, stats.procCalls[0])
}

func TestBuildCalendarFlags(t *testing.T) {
	tests := []struct {
		name        string
		admission   time.Time
		wantWeekend float64
		wantHoliday float64
	}{
		{
			name:        "saturday admission",
			admission:   time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
			wantWeekend: 1,
		},
		{
			name:        "independence day",
			admission:   time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC),
			wantWeekend: 1, // July 4 2026 is a Saturday
			wantHoliday: 1,
		},
		{
			name:        "christmas on a weekday",
			admission:   time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC),
			wantHoliday: 1,
		},
		{
			name:      "ordinary tuesday",
			admission: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewBuilder(&fakeStats{stats: model.DefaultOrgStats()})
			claim := testClaim()
			claim.AdmissionDate = tt.admission
			claim.DischargeDate = tt.admission.AddDate(0, 0, 2)

			features := builder.Build(context.Background(), claim, fullOCRData(), TextSignals{})

			assert.Equal(t, tt.wantWeekend, features.WeekendAdmission)
			assert.Equal(t, tt.wantHoliday, features.HolidayAdmission)
		})
	}
}

func TestBuildHighValueProcedures(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  float64
	}{
		{"surgical code", []string{"33533"}, 1},
		{"office visit only", []string{"99213", "99214"}, 0},
		{"mixed", []string{"99213", "47562"}, 1},
		{"none", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewBuilder(&fakeStats{stats: model.DefaultOrgStats()})
			claim := testClaim()
			claim.ProcedureCodes = tt.codes

			features := builder.Build(context.Background(), claim, fullOCRData(), TextSignals{})
			assert.Equal(t, tt.want, features.HighValueProcedures)
		})
	}
}

func TestBuildHistoryFlags(t *testing.T) {
	stats := &fakeStats{stats: model.DefaultOrgStats(), duplicate: true, readmission: true}
	builder := NewBuilder(stats)
	builder.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

	claim := testClaim()
	features := builder.Build(context.Background(), claim, fullOCRData(), TextSignals{})

	assert.Equal(t, 1.0, features.DuplicateClaim)
	assert.Equal(t, 1.0, features.RapidReadmission)
	assert.Equal(t, time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC), stats.dupSince)
	assert.Equal(t, claim.AdmissionDate.AddDate(0, 0, -30), stats.readmitFrom)
	assert.Equal(t, claim.AdmissionDate, stats.readmitTo)
}

func TestBuildHistoryChecksDegradeOnError(t *testing.T) {
	stats := &fakeStats{stats: model.DefaultOrgStats(), checkErr: errors.New("database locked")}
	builder := NewBuilder(stats)

	features := builder.Build(context.Background(), testClaim(), fullOCRData(), TextSignals{})

	assert.Equal(t, 0.0, features.DuplicateClaim)
	assert.Equal(t, 0.0, features.RapidReadmission)
}

func TestBuildSkipsReadmissionWithoutAdmissionDate(t *testing.T) {
	stats := &fakeStats{stats: model.DefaultOrgStats(), readmission: true}
	builder := NewBuilder(stats)

	claim := testClaim()
	claim.AdmissionDate = time.Time{}
	claim.DischargeDate = time.Time{}
	features := builder.Build(context.Background(), claim, fullOCRData(), TextSignals{})

	assert.Equal(t, 0, stats.readmitCalls)
	assert.Equal(t, 0.0, features.RapidReadmission)
	assert.Equal(t, 0.0, features.LengthOfStay)
}

func TestBuildOCRCompleteness(t *testing.T) {
	builder := NewBuilder(&fakeStats{stats: model.DefaultOrgStats()})

	ocrData := map[string]string{
		"patient_name": "Jane Roe",
		"diagnosis":    "M17.11",
		"total_amount": "  ",
	}
	features := builder.Build(context.Background(), testClaim(), ocrData, TextSignals{})

	assert.Equal(t, 0.5, features.OCRCompleteness)
	assert.Equal(t, 2.0, features.MissingFields)
}

func TestBuildPatientAgeFromDOB(t *testing.T) {
	builder := NewBuilder(&fakeStats{stats: model.DefaultOrgStats()})
	builder.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	ocrData := fullOCRData()
	ocrData["dob"] = "6/1/1990"
	features := builder.Build(context.Background(), testClaim(), ocrData, TextSignals{})

	assert.Equal(t, 36.0, features.PatientAge)
}

func TestBuildPatientAgeFallsBackOnBadDOB(t *testing.T) {
	builder := NewBuilder(&fakeStats{stats: model.DefaultOrgStats()})

	ocrData := fullOCRData()
	ocrData["dob"] = "not a date"
	features := builder.Build(context.Background(), testClaim(), ocrData, TextSignals{})

	assert.Equal(t, 45.0, features.PatientAge)
}

func TestBuildCarriesTextSignals(t *testing.T) {
	builder := NewBuilder(&fakeStats{stats: model.DefaultOrgStats()})

	features := builder.Build(context.Background(), testClaim(), fullOCRData(), TextSignals{Inconsistency: 0.4, Urgency: 0.1})

	assert.Equal(t, 0.4, features.TextInconsistency)
	assert.Equal(t, 0.1, features.TextUrgency)
	assert.Equal(t, 0.0, features.UnusualProviderCombo)
}

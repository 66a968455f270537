package portfoliosync

import "fmt"

// zeroRateThreshold flags columns whose zero share suggests a broken extract.
const zeroRateThreshold = 0.8

// Report collects data-quality findings for one ingestion run. Append-only,
// never fails the run; a fresh report is created per run and discarded after
// being surfaced.
type Report struct {
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
	Info     []string `json:"info"`
}

func NewReport() *Report {
	return &Report{}
}

func (r *Report) Warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) Errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) Infof(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

func (r *Report) HasIssues() bool {
	return len(r.Warnings) > 0 || len(r.Errors) > 0
}

// auditZeroRates warns when the outstanding-balance or late-days columns are
// suspiciously zero-heavy (>80%), a common sign of a truncated or misaligned
// extract. Only meaningful when the column was actually mapped.
func auditZeroRates(rows []SourceRow, mapping ColumnMapping, report *Report) {
	if len(rows) == 0 {
		return
	}

	if mapping.Has(FieldOutstanding) {
		zero := 0
		for _, row := range rows {
			if row.OutstandingBalance.IsZero() {
				zero++
			}
		}
		if rate := float64(zero) / float64(len(rows)); rate > zeroRateThreshold {
			report.Warnf("%.0f%% of %q values are zero; the extract may be incomplete", rate*100, FieldOutstanding)
		}
	}

	if mapping.Has(FieldLateDays) {
		zero := 0
		for _, row := range rows {
			if row.LateDays == 0 {
				zero++
			}
		}
		if rate := float64(zero) / float64(len(rows)); rate > zeroRateThreshold {
			report.Warnf("%.0f%% of %q values are zero; the extract may be incomplete", rate*100, FieldLateDays)
		}
	}
}

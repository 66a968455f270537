package portfoliosync

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateHeaders(t *testing.T) {
	cases := []struct {
		name    string
		headers []string
		wantErr error
	}{
		{"valid", []string{"Client ID", "Name"}, nil},
		{"all blank", []string{"", "  "}, ErrNoHeaderRow},
		{"auto-generated", []string{"Column1", "Column2"}, ErrInvalidHeaderRow},
		{"unnamed", []string{"Unnamed: 0", "Name"}, ErrInvalidHeaderRow},
		{"f-style", []string{"F1", "F2"}, ErrInvalidHeaderRow},
		{"blank mixed with real", []string{"", "Client ID"}, nil},
	}
	for _, tc := range cases {
		if got := validateHeaders(tc.headers); got != tc.wantErr {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.wantErr)
		}
	}
}

func TestConvertRowsDefaultsAndFallbacks(t *testing.T) {
	// Only a name column mapped: ids fall back deterministically, financials
	// default to zero.
	headers := []string{"Client Name"}
	mapping := MapColumns(headers, nil)
	report := NewReport()

	rows := ConvertRows([][]string{{"Daw Mya"}, {""}}, mapping, report)

	if len(rows) != 2 {
		t.Fatalf("rows: %d", len(rows))
	}
	if rows[0].Name != "Daw Mya" {
		t.Errorf("name: %q", rows[0].Name)
	}
	if rows[0].ExternalClientId != "AUTO-000001" || rows[1].ExternalClientId != "AUTO-000002" {
		t.Errorf("fallback ids: %q %q", rows[0].ExternalClientId, rows[1].ExternalClientId)
	}
	if rows[1].Name != "Client 2" {
		t.Errorf("fallback name: %q", rows[1].Name)
	}
	if rows[0].OfficerId != "UNKNOWN" {
		t.Errorf("fallback officer: %q", rows[0].OfficerId)
	}
	if !rows[0].OutstandingBalance.IsZero() {
		t.Errorf("unmapped financial must default to zero")
	}
}

func TestConvertRowsParsesNumericNoise(t *testing.T) {
	headers := []string{"Client ID", "Outstanding Balance", "Late Days"}
	mapping := MapColumns(headers, nil)
	report := NewReport()

	rows := ConvertRows([][]string{
		{"C-1", "1,250,000.50", "12"},
		{"C-2", "abc", "oops"},
	}, mapping, report)

	want := decimal.RequireFromString("1250000.50")
	if !rows[0].OutstandingBalance.Equal(want) {
		t.Errorf("comma-separated value: got %s", rows[0].OutstandingBalance)
	}
	if rows[0].LateDays != 12 {
		t.Errorf("late days: %d", rows[0].LateDays)
	}

	// Non-numeric values default to zero and are reported.
	if !rows[1].OutstandingBalance.IsZero() || rows[1].LateDays != 0 {
		t.Errorf("bad numerics must default to zero: %+v", rows[1])
	}
	if len(report.Errors) != 2 {
		t.Errorf("expected 2 conversion errors, got %v", report.Errors)
	}
}

func TestConvertRowsRaggedRowsReadAsBlank(t *testing.T) {
	headers := []string{"Client ID", "Client Name", "Outstanding Balance"}
	mapping := MapColumns(headers, nil)
	report := NewReport()

	// Sheet libraries drop trailing empty cells; a short row must not panic
	// and missing cells behave like blanks.
	rows := ConvertRows([][]string{{"C-9"}}, mapping, report)

	if rows[0].ExternalClientId != "C-9" {
		t.Errorf("id: %q", rows[0].ExternalClientId)
	}
	if rows[0].Name != "Client 1" {
		t.Errorf("short row name fallback: %q", rows[0].Name)
	}
	if !rows[0].OutstandingBalance.IsZero() {
		t.Errorf("short row balance: %s", rows[0].OutstandingBalance)
	}
}

func TestConvertRowsUnmappedPassthrough(t *testing.T) {
	headers := []string{"Client ID", "Branch Region"}
	mapping := MapColumns(headers, nil)
	report := NewReport()

	rows := ConvertRows([][]string{{"C-1", "North"}}, mapping, report)

	if got := rows[0].Extra["Branch Region"]; got != "North" {
		t.Errorf("passthrough: %q", got)
	}
}

func TestZeroRateWarning(t *testing.T) {
	headers := []string{"Client ID", "Outstanding Balance"}
	mapping := MapColumns(headers, nil)
	report := NewReport()

	// 9 of 10 balances zero: above the 80% threshold.
	raw := make([][]string, 10)
	for i := range raw {
		raw[i] = []string{"C", "0"}
	}
	raw[0][1] = "100"

	ConvertRows(raw, mapping, report)

	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "Outstanding Balance") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected zero-rate warning, got %v", report.Warnings)
	}
}

func TestZeroRateNotWarnedWhenColumnUnmapped(t *testing.T) {
	headers := []string{"Client ID"}
	mapping := MapColumns(headers, nil)
	report := NewReport()

	raw := make([][]string, 10)
	for i := range raw {
		raw[i] = []string{"C"}
	}
	ConvertRows(raw, mapping, report)

	for _, w := range report.Warnings {
		if strings.Contains(w, "values are zero") {
			t.Errorf("unmapped column must not trigger zero-rate warning: %q", w)
		}
	}
}

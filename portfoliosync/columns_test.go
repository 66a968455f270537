package portfoliosync

import (
	"testing"
)

func TestMapColumnsExactAndSynonym(t *testing.T) {
	headers := []string{"Client ID", "Client Name", "LO ID", "Outstanding Balance", "Late Days"}
	mapping := MapColumns(headers, nil)

	want := map[string]int{
		FieldClientId:    0,
		FieldClientName:  1,
		FieldOfficerId:   2,
		FieldOutstanding: 3,
		FieldLateDays:    4,
	}
	for field, idx := range want {
		if got, ok := mapping.Fields[field]; !ok || got != idx {
			t.Errorf("%s: got %d (ok=%v) want %d", field, got, ok, idx)
		}
	}
	if len(mapping.Unmapped) != 0 {
		t.Errorf("unexpected unmapped columns: %v", mapping.Unmapped)
	}
}

func TestMapColumnsCaseAndWhitespaceInsensitive(t *testing.T) {
	headers := []string{"  client   id ", "CLIENT NAME", "loan officer id"}
	mapping := MapColumns(headers, nil)

	if mapping.Fields[FieldClientId] != 0 || mapping.Fields[FieldClientName] != 1 || mapping.Fields[FieldOfficerId] != 2 {
		t.Errorf("normalization failed: %v", mapping.Fields)
	}
}

func TestMapColumnsFuzzyThreshold(t *testing.T) {
	mapping := MapColumns([]string{"outstanding balance "}, nil)
	if !mapping.Has(FieldOutstanding) {
		t.Fatalf("trailing space should still map")
	}

	// "risk" is contained in "at risk" but the length ratio 4/7 misses the
	// 0.85 threshold, so the column must stay unmapped.
	mapping = MapColumns([]string{"risk"}, nil)
	if mapping.Has(FieldAtRisk) {
		t.Errorf("below-threshold fuzzy match must not map")
	}
	if len(mapping.Unmapped) != 1 {
		t.Errorf("unmapped: %v", mapping.Unmapped)
	}
}

func TestMapColumnsBestMatchDeterministicTies(t *testing.T) {
	// Two columns with identical similarity to the same field: the earlier
	// column wins, every run.
	headers := []string{"phone number x", "phone number y"}
	for i := 0; i < 10; i++ {
		mapping := MapColumns(headers, nil)
		if got := mapping.Fields[FieldPhone]; got != 0 {
			t.Fatalf("tie must break by column order, got %d", got)
		}
	}
}

func TestMapColumnsClaimsEachColumnOnce(t *testing.T) {
	// "id" is a synonym for Client ID; once claimed it cannot also serve
	// Loan Officer ID.
	headers := []string{"id", "officer id"}
	mapping := MapColumns(headers, nil)

	if mapping.Fields[FieldClientId] != 0 {
		t.Errorf("client id: %v", mapping.Fields)
	}
	if mapping.Fields[FieldOfficerId] != 1 {
		t.Errorf("officer id: %v", mapping.Fields)
	}
}

func TestMapColumnsUnmappedPassthrough(t *testing.T) {
	headers := []string{"Client ID", "Favourite Color"}
	report := NewReport()
	mapping := MapColumns(headers, report)
	auditMapping(mapping, report)

	if len(mapping.Unmapped) != 1 || mapping.Unmapped[0] != 1 {
		t.Fatalf("unmapped: %v", mapping.Unmapped)
	}
	if len(report.Errors) == 0 {
		t.Errorf("missing identity columns must be reported as errors")
	}
	if len(report.Warnings) == 0 {
		t.Errorf("missing financial columns must be reported as warnings")
	}
}

func TestSimilarityContainmentRule(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"lo id", "lo id", 1},
		{"phone", "phones", 5.0 / 6.0},
		{"abc", "xyz", 0},
		{"", "phone", 0},
	}
	for _, tc := range cases {
		if got := similarity(tc.a, tc.b); got != tc.want {
			t.Errorf("similarity(%q,%q): got %v want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestIdentityFallbacksAreDeterministic(t *testing.T) {
	if got := fallbackClientId(0); got != "AUTO-000001" {
		t.Errorf("fallback id: %q", got)
	}
	if got := fallbackClientName(41); got != "Client 42" {
		t.Errorf("fallback name: %q", got)
	}
}

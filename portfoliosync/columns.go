package portfoliosync

import (
	"fmt"
	"strings"
)

// similarityThreshold gates fuzzy header matches: the shorter normalized
// string must be contained in the longer one and their length ratio
// (min/max) must clear this value.
const similarityThreshold = 0.85

// Synonym lists per canonical field, already in normalized form.
var fieldSynonyms = map[string][]string{
	FieldClientId:           {"client id", "clientid", "client code", "id", "member id", "borrower id", "account id"},
	FieldClientName:         {"client name", "clientname", "name", "member name", "borrower name", "full name"},
	FieldOfficerId:          {"loan officer id", "lo id", "loid", "officer id", "loan officer", "credit officer id", "co id"},
	FieldOutstanding:        {"outstanding balance", "outstanding", "balance outstanding", "principal outstanding", "olb"},
	FieldAtRisk:             {"at risk balance", "at risk", "balance at risk", "par balance", "portfolio at risk balance"},
	FieldParPerLoan:         {"par per loan", "par/loan", "par ratio", "par"},
	FieldLateDays:           {"late days", "days late", "days in arrears", "arrears days", "overdue days"},
	FieldDelayedInstalments: {"delayed instalments", "delayed installments", "late instalments", "missed installments", "overdue installments"},
	FieldPaidInstalments:    {"paid instalments", "paid installments", "installments paid"},
	FieldReschedules:        {"reschedule count", "reschedules", "rescheduled", "restructure count", "restructures"},
	FieldMonthlyPayment:     {"monthly payment", "monthly instalment", "monthly installment", "installment amount", "emi"},
	FieldPhone:              {"phone", "phone number", "mobile", "mobile number", "contact number", "telephone"},
}

// ColumnMapping is the outcome of reconciling one header row against the
// canonical schema.
type ColumnMapping struct {
	// canonical field -> source column index
	Fields map[string]int
	// source column indexes with no canonical match; passed through verbatim
	Unmapped []int
	Headers  []string
}

func (m ColumnMapping) Has(field string) bool {
	_, ok := m.Fields[field]
	return ok
}

// normalizeHeader lowercases and collapses interior whitespace.
func normalizeHeader(header string) string {
	fields := strings.Fields(strings.ToLower(header))
	return strings.Join(fields, " ")
}

// similarity is min(len)/max(len) of the two normalized strings, zero unless
// one contains the other.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return 0
	}
	la, lb := float64(len(a)), float64(len(b))
	if la < lb {
		return la / lb
	}
	return lb / la
}

// MapColumns finds the best source column per canonical field: exact
// normalized match first, else the highest-similarity fuzzy match clearing
// the threshold. Ties break by column order, so ambiguous header sets
// resolve deterministically. A source column maps to at most one field.
func MapColumns(headers []string, report *Report) ColumnMapping {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	mapping := ColumnMapping{
		Fields:  map[string]int{},
		Headers: headers,
	}
	claimed := make(map[int]bool, len(headers))

	order := []string{
		FieldClientId, FieldClientName, FieldOfficerId,
		FieldOutstanding, FieldAtRisk, FieldParPerLoan, FieldLateDays,
		FieldDelayedInstalments, FieldPaidInstalments, FieldReschedules,
		FieldMonthlyPayment, FieldPhone,
	}

	for _, field := range order {
		idx, ratio := bestColumn(normalized, claimed, fieldSynonyms[field])
		if idx < 0 {
			continue
		}
		mapping.Fields[field] = idx
		claimed[idx] = true
		if report != nil {
			if ratio >= 1 {
				report.Infof("mapped column %q to %q", headers[idx], field)
			} else {
				report.Infof("mapped column %q to %q (similarity %.2f)", headers[idx], field, ratio)
			}
		}
	}

	for i := range headers {
		if !claimed[i] {
			mapping.Unmapped = append(mapping.Unmapped, i)
		}
	}

	return mapping
}

// bestColumn scans every unclaimed column against the synonym list. Exact
// matches return immediately with ratio 1; otherwise the highest fuzzy ratio
// wins, first column on ties.
func bestColumn(normalized []string, claimed map[int]bool, synonyms []string) (int, float64) {
	for i, header := range normalized {
		if claimed[i] {
			continue
		}
		for _, syn := range synonyms {
			if header == syn {
				return i, 1
			}
		}
	}

	bestIdx, bestRatio := -1, 0.0
	for i, header := range normalized {
		if claimed[i] {
			continue
		}
		for _, syn := range synonyms {
			if ratio := similarity(header, syn); ratio >= similarityThreshold && ratio > bestRatio {
				bestIdx, bestRatio = i, ratio
			}
		}
	}
	return bestIdx, bestRatio
}

// auditMapping records the identity/financial fallout of a mapping: missing
// identity columns are errors (deterministic fallbacks kick in), missing
// financial columns are warnings (zero defaults, expected for some feeds).
func auditMapping(mapping ColumnMapping, report *Report) {
	for _, field := range identityFields {
		if !mapping.Has(field) {
			report.Errorf("critical identity column %q not found; deterministic fallback values will be used", field)
		}
	}
	for _, field := range financialFields {
		if !mapping.Has(field) {
			report.Warnf("column %q not found; defaulting to zero", field)
		}
	}
	for _, idx := range mapping.Unmapped {
		report.Infof("column %q has no canonical match; passed through unchanged", mapping.Headers[idx])
	}
}

// Deterministic identity fallbacks. "Client N" names and zero-padded ids keep
// re-imports stable when a feed omits identity columns.
func fallbackClientId(rowIndex int) string {
	return fmt.Sprintf("AUTO-%06d", rowIndex+1)
}

func fallbackClientName(rowIndex int) string {
	return fmt.Sprintf("Client %d", rowIndex+1)
}

const fallbackOfficerId = "UNKNOWN"

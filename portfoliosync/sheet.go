package portfoliosync

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/fieldlend/portfolio_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Auto-generated header shapes some spreadsheet tools emit when the real
// header row is missing ("Column1", "Unnamed: 0", "F3", ...).
var autoGeneratedHeader = regexp.MustCompile(`(?i)^(column ?\d+|unnamed:? ?\d*|field ?\d+|f\d+)$`)

// ParseWorkbook reads the first sheet only. A header row with non-blank,
// non-auto-generated names and at least one data row are required; anything
// less aborts the run with a typed error.
func ParseWorkbook(data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, ErrNoHeaderRow
	}

	headers := rows[0]
	if err := validateHeaders(headers); err != nil {
		return nil, nil, err
	}

	dataRows := rows[1:]
	if len(dataRows) == 0 {
		return nil, nil, ErrNoDataRows
	}

	return headers, dataRows, nil
}

func validateHeaders(headers []string) error {
	nonBlank := 0
	for _, h := range headers {
		trimmed := strings.TrimSpace(h)
		if trimmed == "" {
			continue
		}
		if autoGeneratedHeader.MatchString(trimmed) {
			return ErrInvalidHeaderRow
		}
		nonBlank++
	}
	if nonBlank == 0 {
		return ErrNoHeaderRow
	}
	return nil
}

// cell returns the trimmed value at idx; sheets drop trailing empty cells,
// so short rows read as blanks.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ConvertRows turns raw sheet rows into SourceRows. Conversion failures and
// defaulted values are reported but never abort: a degraded-but-complete
// result beats none.
func ConvertRows(rows [][]string, mapping ColumnMapping, report *Report) []SourceRow {
	out := make([]SourceRow, 0, len(rows))

	for i, raw := range rows {
		row := SourceRow{Extra: map[string]string{}}

		row.ExternalClientId = identityCell(raw, mapping, FieldClientId, fallbackClientId(i))
		row.Name = identityCell(raw, mapping, FieldClientName, fallbackClientName(i))
		row.OfficerId = identityCell(raw, mapping, FieldOfficerId, fallbackOfficerId)

		row.OutstandingBalance = decimalCell(raw, mapping, FieldOutstanding, i, report)
		row.AtRiskBalance = decimalCell(raw, mapping, FieldAtRisk, i, report)
		row.ParPerLoan = decimalCell(raw, mapping, FieldParPerLoan, i, report)
		row.MonthlyPayment = decimalCell(raw, mapping, FieldMonthlyPayment, i, report)
		row.LateDays = intCell(raw, mapping, FieldLateDays, i, report)
		row.DelayedInstalments = intCell(raw, mapping, FieldDelayedInstalments, i, report)
		row.PaidInstalments = intCell(raw, mapping, FieldPaidInstalments, i, report)
		row.RescheduleCount = intCell(raw, mapping, FieldReschedules, i, report)

		if idx, ok := mapping.Fields[FieldPhone]; ok {
			phone := cell(raw, idx)
			row.Phone = phone
			if phone != "" {
				if err := utils.ValidatePhoneNumber(phone, utils.CountryCode); err != nil {
					report.Warnf("row %d: phone %q is not a valid number", i+1, phone)
				}
			}
		}

		for _, idx := range mapping.Unmapped {
			if value := cell(raw, idx); value != "" {
				row.Extra[mapping.Headers[idx]] = value
			}
		}

		out = append(out, row)
	}

	auditZeroRates(out, mapping, report)
	return out
}

func identityCell(raw []string, mapping ColumnMapping, field string, fallback string) string {
	if idx, ok := mapping.Fields[field]; ok {
		if value := cell(raw, idx); value != "" {
			return value
		}
	}
	return fallback
}

func decimalCell(raw []string, mapping ColumnMapping, field string, rowIdx int, report *Report) decimal.Decimal {
	idx, ok := mapping.Fields[field]
	if !ok {
		return decimal.Zero
	}
	value := cell(raw, idx)
	if value == "" {
		return decimal.Zero
	}
	dec, err := utils.ParseDecimal(cleanNumeric(value))
	if err != nil {
		report.Errorf("row %d: %q value %q is not numeric; defaulting to zero", rowIdx+1, field, value)
		return decimal.Zero
	}
	return dec
}

func intCell(raw []string, mapping ColumnMapping, field string, rowIdx int, report *Report) int {
	dec := decimalCell(raw, mapping, field, rowIdx, report)
	return int(dec.Round(0).IntPart())
}

// cleanNumeric strips thousands separators and currency noise commonly found
// in exported sheets.
func cleanNumeric(value string) string {
	value = strings.ReplaceAll(value, ",", "")
	value = strings.TrimSuffix(value, "%")
	return strings.TrimSpace(value)
}

package datanorm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// NormalizedRecord is the normalized output of one extract row, ready for
// collapsing into a canonical CustomerRecord. Revenue fields are pointers:
// nil means unparsable, which must never collapse into 0 because 0 is a
// legitimate value (bundled/free service).
type NormalizedRecord struct {
	CustomerID    string
	Name          string
	Industry      string
	Region        string
	Category      string
	TierGroup     string
	ServiceName   string
	Products      []string
	Revenue       *float64
	PrevRevenue   *float64
	BandwidthMbps float64
	BandwidthKind domain.BandwidthKind
	TenureMonths  int
	Status        string
	Active        bool
	QualityScore  float64 // 0.0-1.0 composite score

	// Parse outcomes feeding the quality score and reject decisions
	TenureDefaulted bool
	Issues          []string

	RowNum     int
	SourceFile string
}

const (
	tenureCapYears     = 26
	tenureDefaultYears = 3
)

// NormalizeRecord takes an extract row and column mapping and produces a
// NormalizedRecord.
func NormalizeRecord(row []string, mapping *ColumnMapping, sourceFile string) *NormalizedRecord {
	rec := &NormalizedRecord{
		BandwidthKind: domain.BandwidthNone,
		TenureMonths:  tenureDefaultYears * 12,
		Active:        true,
		SourceFile:    sourceFile,
	}
	tenureSeen := false
	statusSeen := false

	for i, val := range row {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}

		field, mapped := mapping.FieldMap[i]
		if !mapped {
			continue
		}

		switch field {
		case FieldCustomerID:
			rec.CustomerID = normalizeID(val)
		case FieldCustomerName:
			rec.Name = titleCase(val)
		case FieldIndustry:
			rec.Industry = strings.ToUpper(cleanLabel(val))
		case FieldRegion:
			rec.Region = strings.ToUpper(cleanLabel(val))
		case FieldCategory:
			rec.Category = cleanLabel(val)
		case FieldTierGroup:
			rec.TierGroup = strings.ToUpper(cleanLabel(val))
		case FieldProduct:
			if p := cleanLabel(val); p != "" {
				rec.Products = append(rec.Products, p)
			}
		case FieldServiceName:
			rec.ServiceName = cleanLabel(val)
		case FieldBandwidth:
			rec.BandwidthMbps, rec.BandwidthKind = ParseBandwidth(val)
			if rec.BandwidthKind == domain.BandwidthUnknown {
				rec.Issues = append(rec.Issues, "unparsable bandwidth "+strconv.Quote(val))
			}
		case FieldRevenue:
			if v, ok := ParseCurrency(val); ok {
				rec.Revenue = &v
			} else {
				rec.Issues = append(rec.Issues, "unparsable revenue "+strconv.Quote(val))
			}
		case FieldPrevRevenue:
			if v, ok := ParseCurrency(val); ok {
				rec.PrevRevenue = &v
			}
		case FieldTenure:
			months, defaulted := CleanTenure(val)
			rec.TenureMonths = months
			rec.TenureDefaulted = defaulted
			tenureSeen = true
		case FieldStatus:
			rec.Status = strings.ToUpper(cleanLabel(val))
			rec.Active = isActiveStatus(rec.Status)
			statusSeen = true
		}
	}

	if !tenureSeen {
		rec.TenureDefaulted = true
	}
	// Missing status column means the extract was pre-filtered upstream
	if !statusSeen {
		rec.Active = true
	}

	rec.QualityScore = computeQualityScore(rec)
	return rec
}

func normalizeID(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "\"'")
}

// cleanLabel trims whitespace, surrounding quotes, and collapses inner runs
// of whitespace to single spaces.
func cleanLabel(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "\"'")
	return strings.Join(strings.Fields(s), " ")
}

func titleCase(s string) string {
	words := strings.Fields(cleanLabel(s))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func isActiveStatus(status string) bool {
	// Negated forms first: "TIDAK AKTIF" contains "AKTIF"
	for _, negated := range []string{"TIDAK AKTIF", "NON AKTIF", "NON-AKTIF", "NONAKTIF", "INACTIVE"} {
		if strings.Contains(status, negated) {
			return false
		}
	}
	return strings.Contains(status, "AKTIF") || strings.Contains(status, "ACTIVE")
}

var bandwidthRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(MBPS|GBPS|KBPS)`)
var digitsRe = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
var anyNumberRe = regexp.MustCompile(`\d+`)

// ParseBandwidth resolves the bandwidth column's mixed vocabulary into Mbps
// plus a kind tag. "4 IP" rows are IP transit services, not bandwidth; "E1"
// is a 2 Mbps legacy TDM line; bare numbers are taken as Mbps; "Tidak Ada"
// means the service carries no bandwidth component.
func ParseBandwidth(raw string) (float64, domain.BandwidthKind) {
	bw := strings.ToUpper(strings.TrimSpace(raw))
	if bw == "" || bw == "TIDAK ADA" || bw == "NAN" || bw == "-" {
		return 0, domain.BandwidthNone
	}

	// IP address count, not bandwidth
	if strings.Contains(bw, "IP") && !strings.Contains(bw, "MBPS") && !strings.Contains(bw, "GBPS") {
		return 0, domain.BandwidthIPOnly
	}

	if m := bandwidthRe.FindStringSubmatch(bw); m != nil {
		n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil {
			switch m[2] {
			case "GBPS":
				return n * 1000, domain.BandwidthConnectivity
			case "KBPS":
				return n / 1000, domain.BandwidthConnectivity
			default:
				return n, domain.BandwidthConnectivity
			}
		}
	}

	if strings.Contains(bw, "E1") {
		return 2, domain.BandwidthConnectivity
	}

	// Bare number, assume Mbps
	if digitsRe.MatchString(bw) {
		n, err := strconv.ParseFloat(strings.ReplaceAll(bw, ",", "."), 64)
		if err == nil {
			return n, domain.BandwidthConnectivity
		}
	}

	return 0, domain.BandwidthUnknown
}

// CleanTenure resolves the subscription-length column into months. The
// source mixes plain year counts, quoted numbers, "Berkontrak di Tahun N"
// annotations (contract not yet verified, a renewal risk, treated as 0) and
// "Data Tidak Valid" markers. Years cap at 26, the age of the oldest
// contract in the source system. The second return value reports whether
// the median default was substituted.
func CleanTenure(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return tenureDefaultYears * 12, true
	}

	// Plain or quoted year count
	unquoted := strings.Trim(s, "'\"")
	if digitsRe.MatchString(unquoted) {
		years, err := strconv.ParseFloat(strings.ReplaceAll(unquoted, ",", "."), 64)
		if err == nil {
			return yearsToMonths(years), false
		}
	}

	if strings.Contains(s, "Berkontrak") {
		return 0, false
	}

	if strings.Contains(s, "Tidak Valid") || strings.Contains(s, "Invalid") {
		return tenureDefaultYears * 12, true
	}

	// Extract any number
	if m := anyNumberRe.FindString(s); m != "" {
		years, err := strconv.ParseFloat(m, 64)
		if err == nil {
			return yearsToMonths(years), false
		}
	}

	return tenureDefaultYears * 12, true
}

func yearsToMonths(years float64) int {
	if years > tenureCapYears {
		years = tenureCapYears
	}
	if years < 0 {
		years = 0
	}
	return int(years*12 + 0.5)
}

// ParseCurrency parses locale-formatted money values: "Rp 3.500.000",
// "3,500,000", "1.234.567,89", "1234567.89". Returns false for values with
// no parsable amount; callers must treat that as missing, never as 0.
func ParseCurrency(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	// Strip currency markers and spaces
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"RP.", "RP", "IDR", "USD", "$"} {
		upper = strings.ReplaceAll(upper, prefix, "")
	}
	s = strings.TrimSpace(upper)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return 0, false
		}
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: the later one is the decimal separator
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastComma >= 0:
		s = resolveSingleSeparator(s, ",")
	case lastDot >= 0:
		s = resolveSingleSeparator(s, ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// resolveSingleSeparator decides whether a lone separator kind is a
// thousands or decimal marker. Repeated separators and groups of exactly
// three digits read as thousands (the dominant convention in the source
// extracts); anything else reads as a decimal point.
func resolveSingleSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) > 2 {
		return strings.Join(parts, "")
	}
	if len(parts) == 2 && len(parts[1]) == 3 && len(parts[0]) >= 1 {
		return parts[0] + parts[1]
	}
	return strings.Replace(s, sep, ".", 1)
}

// computeQualityScore derives a 0.0-1.0 completeness score from parse
// outcomes. Revenue and bandwidth are the strongest signals since every
// downstream stage keys off them.
func computeQualityScore(rec *NormalizedRecord) float64 {
	score := 0.30 // base: id resolved, little else known

	if rec.Revenue != nil {
		score += 0.20
	}
	if rec.BandwidthKind == domain.BandwidthConnectivity || rec.BandwidthKind == domain.BandwidthIPOnly {
		score += 0.15
	} else if rec.BandwidthKind == domain.BandwidthNone {
		score += 0.05
	}
	if !rec.TenureDefaulted {
		score += 0.10
	}
	if rec.Name != "" {
		score += 0.05
	}
	if rec.Industry != "" {
		score += 0.05
	}
	if rec.Category != "" {
		score += 0.05
	}
	if rec.TierGroup != "" {
		score += 0.05
	}
	if len(rec.Products) > 0 {
		score += 0.05
	}

	return clamp(score, 0, 1)
}

// completeness counts filled canonical fields; the dedupe policy keeps the
// row with the highest count.
func (r *NormalizedRecord) completeness() int {
	n := 0
	for _, filled := range []bool{
		r.CustomerID != "", r.Name != "", r.Industry != "", r.Region != "",
		r.Category != "", r.TierGroup != "", r.ServiceName != "",
		len(r.Products) > 0, r.Revenue != nil, r.PrevRevenue != nil,
		r.BandwidthKind != domain.BandwidthUnknown && r.BandwidthKind != domain.BandwidthNone,
		!r.TenureDefaulted, r.Status != "",
	} {
		if filled {
			n++
		}
	}
	return n
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

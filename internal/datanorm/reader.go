package datanorm

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/pkg/logger"
)

// RowIssue records one rejected or flagged extract row.
type RowIssue struct {
	Row        int    `json:"row"`
	CustomerID string `json:"customer_id,omitempty"`
	Reason     string `json:"reason"`
}

// Result is the outcome of normalizing one extract.
type Result struct {
	Records     []*domain.CustomerRecord
	TotalRows   int
	Imported    int
	Rejected    int
	Inactive    int
	Duplicates  int
	MeanQuality float64
	Issues      []RowIssue
}

// maxIssues bounds the per-run issue sample kept in memory; the counters
// stay exact.
const maxIssues = 200

// Reader normalizes a delimited customer extract into canonical records.
type Reader struct {
	delimiter rune
}

// NewReader returns a Reader for the given field delimiter. Zero means
// comma.
func NewReader(delimiter rune) *Reader {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Reader{delimiter: delimiter}
}

// Read parses the extract stream, maps columns, normalizes every row,
// drops inactive services, and collapses rows sharing a customer id into
// one record per customer. Malformed rows are counted and sampled into
// Issues, never abort the read. Only an unusable header is fatal.
func (rd *Reader) Read(src io.Reader, sourceFile string) (*Result, error) {
	reader := csv.NewReader(stripBOM(src))
	reader.Comma = rd.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	mapping := MapColumns(header)
	if mapping == nil {
		return nil, fmt.Errorf("no customer id column detected in header: %v", header)
	}
	if !mapping.HasField(FieldRevenue) {
		return nil, fmt.Errorf("no revenue column detected in header: %v", header)
	}

	res := &Result{}
	var rows []*NormalizedRecord

	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			res.TotalRows++
			rd.reject(res, rowNum, "", fmt.Sprintf("parse error: %v", err))
			continue
		}
		res.TotalRows++

		rec := NormalizeRecord(row, mapping, sourceFile)
		rec.RowNum = rowNum

		if rec.CustomerID == "" {
			rd.reject(res, rowNum, "", "missing customer id")
			continue
		}
		if rec.Revenue == nil {
			reason := "missing revenue"
			for _, iss := range rec.Issues {
				if strings.Contains(iss, "revenue") {
					reason = iss
				}
			}
			rd.reject(res, rowNum, rec.CustomerID, reason)
			continue
		}
		if !rec.Active {
			res.Inactive++
			continue
		}

		rows = append(rows, rec)
	}

	res.Records = collapse(rows)
	res.Imported = len(res.Records)
	res.Duplicates = len(rows) - len(res.Records)

	var totalQuality float64
	for _, r := range res.Records {
		totalQuality += r.QualityScore
	}
	if len(res.Records) > 0 {
		res.MeanQuality = totalQuality / float64(len(res.Records))
	}

	return res, nil
}

func (rd *Reader) reject(res *Result, rowNum int, customerID, reason string) {
	res.Rejected++
	if len(res.Issues) < maxIssues {
		res.Issues = append(res.Issues, RowIssue{Row: rowNum, CustomerID: customerID, Reason: reason})
	}
	logger.Debug("extract row rejected", "row", rowNum, "customer_id", customerID, "reason", reason)
}

// collapse merges rows sharing a customer id into one CustomerRecord per
// customer, in first-seen order. Policy: descriptive fields come from the
// most complete row (most filled canonical fields, ties to higher revenue,
// then to the later row); revenue sums across the customer's service rows;
// bandwidth takes the strongest line; products union in first-seen order.
func collapse(rows []*NormalizedRecord) []*domain.CustomerRecord {
	type group struct {
		rows []*NormalizedRecord
	}

	order := make([]string, 0, len(rows))
	groups := make(map[string]*group, len(rows))
	for _, r := range rows {
		g, ok := groups[r.CustomerID]
		if !ok {
			g = &group{}
			groups[r.CustomerID] = g
			order = append(order, r.CustomerID)
		}
		g.rows = append(g.rows, r)
	}

	out := make([]*domain.CustomerRecord, 0, len(order))
	for _, id := range order {
		out = append(out, mergeGroup(groups[id].rows))
	}
	return out
}

func mergeGroup(rows []*NormalizedRecord) *domain.CustomerRecord {
	best := rows[0]
	for _, r := range rows[1:] {
		if betterRow(r, best) {
			best = r
		}
	}

	var revenue, prevRevenue float64
	for _, r := range rows {
		if r.Revenue != nil {
			revenue += *r.Revenue
		}
		if r.PrevRevenue != nil {
			prevRevenue += *r.PrevRevenue
		}
	}

	bwRow := rows[0]
	for _, r := range rows[1:] {
		if strongerBandwidth(r, bwRow) {
			bwRow = r
		}
	}

	seen := make(map[string]bool)
	var products []string
	for _, r := range rows {
		for _, p := range r.Products {
			key := strings.ToUpper(p)
			if !seen[key] {
				seen[key] = true
				products = append(products, p)
			}
		}
	}

	return &domain.CustomerRecord{
		ID:             best.CustomerID,
		Name:           best.Name,
		Industry:       best.Industry,
		Region:         best.Region,
		Category:       best.Category,
		TierGroup:      best.TierGroup,
		ServiceName:    best.ServiceName,
		Products:       products,
		MonthlyRevenue: revenue,
		PrevRevenue:    prevRevenue,
		BandwidthMbps:  bwRow.BandwidthMbps,
		BandwidthKind:  bwRow.BandwidthKind,
		TenureMonths:   best.TenureMonths,
		Status:         best.Status,
		Active:         true,
		QualityScore:   best.QualityScore,
		SourceFile:     best.SourceFile,
	}
}

// betterRow reports whether a should replace b as the representative row.
func betterRow(a, b *NormalizedRecord) bool {
	ca, cb := a.completeness(), b.completeness()
	if ca != cb {
		return ca > cb
	}
	ra, rb := 0.0, 0.0
	if a.Revenue != nil {
		ra = *a.Revenue
	}
	if b.Revenue != nil {
		rb = *b.Revenue
	}
	if ra != rb {
		return ra > rb
	}
	return a.RowNum >= b.RowNum
}

var kindRank = map[domain.BandwidthKind]int{
	domain.BandwidthConnectivity: 3,
	domain.BandwidthIPOnly:       2,
	domain.BandwidthNone:         1,
	domain.BandwidthUnknown:      0,
}

func strongerBandwidth(a, b *NormalizedRecord) bool {
	if kindRank[a.BandwidthKind] != kindRank[b.BandwidthKind] {
		return kindRank[a.BandwidthKind] > kindRank[b.BandwidthKind]
	}
	return a.BandwidthMbps > b.BandwidthMbps
}

// stripBOM wraps a reader to strip a UTF-8 BOM if present.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	if err == nil && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(bytes.NewReader(buf[:n]), r)
}

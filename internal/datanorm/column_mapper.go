package datanorm

import "strings"

// CanonicalField is a normalized field name used across all extract sources.
type CanonicalField string

const (
	FieldCustomerID   CanonicalField = "customer_id"
	FieldCustomerName CanonicalField = "customer_name"
	FieldIndustry     CanonicalField = "industry"
	FieldRegion       CanonicalField = "region"
	FieldCategory     CanonicalField = "category"
	FieldTierGroup    CanonicalField = "tier_group"
	FieldProduct      CanonicalField = "product"
	FieldServiceName  CanonicalField = "service_name"
	FieldBandwidth    CanonicalField = "bandwidth"
	FieldRevenue      CanonicalField = "monthly_revenue"
	FieldPrevRevenue  CanonicalField = "previous_revenue"
	FieldTenure       CanonicalField = "tenure"
	FieldStatus       CanonicalField = "status"
)

// fieldAliases lists the known lowercase header names per canonical field,
// in priority order: the first alias with a matching column wins. The
// Indonesian names come from the billing extracts this pipeline was built
// around.
var fieldAliases = map[CanonicalField][]string{
	FieldCustomerID: {
		"idpelanggan", "id_pelanggan", "id pelanggan", "customer_id",
		"customerid", "row labels", "id",
	},
	FieldCustomerName: {
		"namapelanggan", "nama pelanggan", "nama_pelanggan", "customer_name",
		"customer name", "nama", "name",
	},
	FieldIndustry: {
		"segmencustomer", "segmen", "segment", "industry",
	},
	FieldRegion: {
		"wilayah", "witel", "region", "area",
	},
	FieldCategory: {
		"kategori_baru", "kategori baru", "kategoriprodukbaru",
		"kategori produk", "kategori", "category",
	},
	FieldTierGroup: {
		"kelompok tier", "kelompok_tier", "nomenklatur baru", "nomenklatur",
		"tier_group", "tier",
	},
	FieldProduct: {
		"produkbaru", "produk baru", "produk", "product_name", "product",
	},
	FieldServiceName: {
		"namalayanan", "nama layanan", "service_name", "layanan",
	},
	FieldBandwidth: {
		"bandwidth fix", "bandwidth_fix", "bandwidth", "kecepatan", "bw",
	},
	FieldRevenue: {
		"hargapelanggan", "harga pelanggan", "harga_pelanggan",
		"monthly_revenue", "revenue", "arpu", "harga",
	},
	FieldPrevRevenue: {
		"hargapelangganlalu", "harga pelanggan lalu", "previous_revenue",
		"prev_revenue",
	},
	FieldTenure: {
		"lama_langganan", "lama langganan", "lamaberlangganan", "tenure",
		"subscription_length",
	},
	FieldStatus: {
		"statuslayanan", "status layanan", "status_layanan", "status",
	},
}

// canonicalFields is the resolution order. Id first so the fallback scan
// below can trust that every other field had its chance at a column.
var canonicalFields = []CanonicalField{
	FieldCustomerID, FieldCustomerName, FieldIndustry, FieldRegion,
	FieldCategory, FieldTierGroup, FieldProduct, FieldServiceName,
	FieldBandwidth, FieldRevenue, FieldPrevRevenue, FieldTenure, FieldStatus,
}

// ColumnMapping holds the resolved mapping from extract column indices to
// canonical fields.
type ColumnMapping struct {
	IDIdx    int
	FieldMap map[int]CanonicalField // column index -> canonical field
	RawNames []string               // original header names
}

// HasField reports whether any column resolved to the given canonical field.
func (m *ColumnMapping) HasField(f CanonicalField) bool {
	for _, mapped := range m.FieldMap {
		if mapped == f {
			return true
		}
	}
	return false
}

func normalizeHeader(h string) string {
	normalized := strings.ToLower(strings.TrimSpace(h))
	// Remove surrounding quotes
	return strings.Trim(normalized, "\"'")
}

// MapColumns takes a raw header row and returns a resolved mapping. Aliases
// are tried in priority order per field, so "idPelanggan" beats a bare "id"
// column no matter which comes first. Returns nil if no customer id column
// is found.
func MapColumns(header []string) *ColumnMapping {
	m := &ColumnMapping{
		IDIdx:    -1,
		FieldMap: make(map[int]CanonicalField, len(header)),
		RawNames: header,
	}

	// First occurrence of each normalized header name
	byName := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, seen := byName[name]; !seen {
			byName[name] = i
		}
	}

	claimed := make(map[int]bool, len(header))
	for _, field := range canonicalFields {
		for _, alias := range fieldAliases[field] {
			idx, ok := byName[alias]
			if !ok || claimed[idx] {
				continue
			}
			m.FieldMap[idx] = field
			claimed[idx] = true
			if field == FieldCustomerID {
				m.IDIdx = idx
			}
			break
		}
	}

	// Fallback: scan for any header containing both "id" and "pelanggan"
	// or "customer" if no exact match
	if m.IDIdx < 0 {
		for i, h := range header {
			lower := strings.ToLower(h)
			if claimed[i] || !strings.Contains(lower, "id") {
				continue
			}
			if strings.Contains(lower, "pelanggan") || strings.Contains(lower, "customer") {
				m.FieldMap[i] = FieldCustomerID
				m.IDIdx = i
				break
			}
		}
	}

	if m.IDIdx < 0 {
		return nil
	}

	return m
}

// skipColumns are columns that carry no useful information for normalization.
var skipColumns = map[string]bool{
	"no":          true,
	"no.":         true,
	"index":       true,
	"unnamed: 0":  true,
	"unnamed:0":   true,
	"eof":         true,
	"keterangan":  true,
	"grand total": true,
	"updated_at":  true,
	"checked_by":  true,
}

// ShouldSkipColumn returns true if a column carries no useful normalized value.
func ShouldSkipColumn(headerName string) bool {
	return skipColumns[normalizeHeader(headerName)]
}

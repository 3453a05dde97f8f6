package datanorm

import (
	"strings"
	"testing"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

const sampleExtract = `idPelanggan,namaPelanggan,segmenCustomer,ProdukBaru,Bandwidth Fix,hargaPelanggan,Lama_Langganan,statusLayanan
C-001,PT Alpha,GOVERNMENT,ASTINET,100 MBPS,Rp 5.000.000,4,AKTIF
C-001,PT Alpha,GOVERNMENT,IP VPN,50 MBPS,Rp 2.000.000,4,AKTIF
C-002,PT Beta,RETAIL DISTRIBUTION,METRO ETHERNET,1 GBPS,15.000.000,10,AKTIF
C-003,PT Gamma,BANKING & FINANCIAL SERVICES,VPN ATM,0.5 MBPS,1.000.000,8,AKTIF
C-004,PT Delta,GOVERNMENT,ASTINET,10 MBPS,bukan angka,2,AKTIF
C-005,PT Epsilon,RETAIL DISTRIBUTION,ASTINET,20 MBPS,500.000,1,TIDAK AKTIF
`

func TestReaderRead(t *testing.T) {
	res, err := NewReader(',').Read(strings.NewReader(sampleExtract), "extract.csv")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if res.TotalRows != 6 {
		t.Errorf("TotalRows = %d, want 6", res.TotalRows)
	}
	if res.Imported != 3 {
		t.Errorf("Imported = %d, want 3 (C-001 collapsed, C-004 rejected, C-005 inactive)", res.Imported)
	}
	if res.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", res.Rejected)
	}
	if res.Inactive != 1 {
		t.Errorf("Inactive = %d, want 1", res.Inactive)
	}
	if res.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", res.Duplicates)
	}
	if len(res.Issues) != 1 || !strings.Contains(res.Issues[0].Reason, "revenue") {
		t.Errorf("Issues = %+v, want one revenue issue", res.Issues)
	}

	// First-seen order preserved
	if res.Records[0].ID != "C-001" || res.Records[1].ID != "C-002" || res.Records[2].ID != "C-003" {
		t.Errorf("record order = %s, %s, %s", res.Records[0].ID, res.Records[1].ID, res.Records[2].ID)
	}
}

func TestReaderCollapse(t *testing.T) {
	res, err := NewReader(',').Read(strings.NewReader(sampleExtract), "extract.csv")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	var alpha *domain.CustomerRecord
	for _, r := range res.Records {
		if r.ID == "C-001" {
			alpha = r
		}
	}
	if alpha == nil {
		t.Fatal("C-001 missing from records")
	}

	if alpha.MonthlyRevenue != 7000000 {
		t.Errorf("collapsed revenue = %v, want 7000000 (sum of service rows)", alpha.MonthlyRevenue)
	}
	if len(alpha.Products) != 2 {
		t.Errorf("collapsed products = %v, want both services", alpha.Products)
	}
	if alpha.BandwidthMbps != 100 {
		t.Errorf("collapsed bandwidth = %v, want max 100", alpha.BandwidthMbps)
	}
	if alpha.TenureMonths != 48 {
		t.Errorf("collapsed tenure = %d, want 48", alpha.TenureMonths)
	}
}

func TestReaderDedupeKeepsMostComplete(t *testing.T) {
	extract := `idPelanggan,namaPelanggan,WILAYAH,hargaPelanggan,statusLayanan
C-9,,,1000000,AKTIF
C-9,PT Lengkap,JAKARTA,2000000,AKTIF
`
	res, err := NewReader(',').Read(strings.NewReader(extract), "e.csv")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("Imported = %d, want 1", res.Imported)
	}
	rec := res.Records[0]
	if rec.Name != "Pt Lengkap" || rec.Region != "JAKARTA" {
		t.Errorf("descriptive fields = (%q, %q), want the more complete row's values", rec.Name, rec.Region)
	}
	if rec.MonthlyRevenue != 3000000 {
		t.Errorf("revenue = %v, want 3000000", rec.MonthlyRevenue)
	}
}

func TestReaderBOM(t *testing.T) {
	extract := "\xEF\xBB\xBF" + "idPelanggan,hargaPelanggan\nC-1,1000\n"
	res, err := NewReader(',').Read(strings.NewReader(extract), "bom.csv")
	if err != nil {
		t.Fatalf("Read() with BOM error = %v", err)
	}
	if res.Imported != 1 || res.Records[0].ID != "C-1" {
		t.Errorf("BOM extract imported = %d, records = %+v", res.Imported, res.Records)
	}
}

func TestReaderSemicolonDelimiter(t *testing.T) {
	extract := "idPelanggan;hargaPelanggan;statusLayanan\nC-1;2.500.000;AKTIF\n"
	res, err := NewReader(';').Read(strings.NewReader(extract), "sc.csv")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if res.Imported != 1 || res.Records[0].MonthlyRevenue != 2500000 {
		t.Errorf("semicolon extract = %+v", res.Records)
	}
}

func TestReaderHeaderErrors(t *testing.T) {
	if _, err := NewReader(',').Read(strings.NewReader("foo,bar\n1,2\n"), "x.csv"); err == nil {
		t.Error("expected error for header without customer id")
	}
	if _, err := NewReader(',').Read(strings.NewReader("idPelanggan,statusLayanan\nC-1,AKTIF\n"), "x.csv"); err == nil {
		t.Error("expected error for header without revenue column")
	}
}

func TestReaderEmptyStream(t *testing.T) {
	res, err := NewReader(',').Read(strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("Read() on empty stream error = %v", err)
	}
	if res.TotalRows != 0 || res.Imported != 0 {
		t.Errorf("empty stream result = %+v", res)
	}
}

func TestReaderZeroRevenueIsNotMissing(t *testing.T) {
	extract := "idPelanggan,hargaPelanggan\nC-1,0\n"
	res, err := NewReader(',').Read(strings.NewReader(extract), "zero.csv")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("Imported = %d, want 1: zero revenue is a bundled service, not a reject", res.Imported)
	}
	if res.Records[0].MonthlyRevenue != 0 {
		t.Errorf("revenue = %v, want 0", res.Records[0].MonthlyRevenue)
	}
}

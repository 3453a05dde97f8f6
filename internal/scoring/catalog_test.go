package scoring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

func TestARPUBand(t *testing.T) {
	tests := []struct {
		revenue   float64
		wantBand  string
		wantLevel int
	}{
		{0, "Bundled/Free", 0},
		{500_000, "Entry", 1},
		{999_999, "Entry", 1},
		{1_000_000, "Mid", 2},
		{3_499_999, "Mid", 2},
		{3_500_000, "High", 3},
		{14_999_999, "High", 3},
		{15_000_000, "Enterprise", 4},
		{250_000_000, "Enterprise", 4},
	}
	for _, tt := range tests {
		band, level := ARPUBand(tt.revenue)
		if band != tt.wantBand || level != tt.wantLevel {
			t.Errorf("ARPUBand(%v) = (%q, %d), want (%q, %d)", tt.revenue, band, level, tt.wantBand, tt.wantLevel)
		}
	}
}

func TestTierLevelFor(t *testing.T) {
	tests := []struct {
		tierGroup string
		want      int
	}{
		{"DI-TS", 1},
		{"di-ts", 1},
		{"DI-SDS-TS", 2},
		{"DI-SDS-SDS", 3},
		{"ALL NOMENKLATUR", 4},
		{"SOMETHING ELSE", 2},
		{"", 2},
	}
	for _, tt := range tests {
		if got := TierLevelFor(tt.tierGroup); got != tt.want {
			t.Errorf("TierLevelFor(%q) = %d, want %d", tt.tierGroup, got, tt.want)
		}
	}
}

func TestInferComplexity(t *testing.T) {
	tests := []struct {
		name string
		want Complexity
	}{
		{"Astinet Basic", ComplexitySimple},
		{"WiFi Starter Bronze", ComplexitySimple},
		{"Internet Professional Plus", ComplexityMedium},
		{"Managed Security Platinum", ComplexityComplex},
		{"Enterprise Dark Fiber", ComplexityComplex},
		{"Plain Connectivity", ComplexityMedium},
		{"Managed Gold Basic", ComplexitySimple},
	}
	for _, tt := range tests {
		if got := InferComplexity(tt.name); got != tt.want {
			t.Errorf("InferComplexity(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEstimateCostTier(t *testing.T) {
	tests := []struct {
		nomenclature string
		want         int
	}{
		{"DI-TS", 1},
		{"DI-SDS-TS", 2},
		{"DI-SDS-SDS", 3},
		{"di-sds-sds extra", 3},
		{"UNKNOWN", 2},
		{"", 2},
	}
	for _, tt := range tests {
		if got := EstimateCostTier(tt.nomenclature); got != tt.want {
			t.Errorf("EstimateCostTier(%q) = %d, want %d", tt.nomenclature, got, tt.want)
		}
	}
}

const sampleCatalogYAML = `
products:
  - name: Astinet Plus
    category: Digital Infrastructure
    nomenclature: DI-SDS-TS
    min_bandwidth_mbps: 50
  - name: Managed Security Enterprise
    category: Technology Services
    nomenclature: DI-SDS-SDS
    target_industries:
      - BANKING & FINANCIAL
      - GOVERNMENT
  - name: CCTV Cloud Basic
    category: Smart & Digital Solution
    nomenclature: DI-TS
    tags:
      - retention
    regions:
      - JAKARTA
      - BANDUNG
`

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	if err := os.WriteFile(path, []byte(sampleCatalogYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	astinet, ok := c.Lookup("astinet plus")
	if !ok {
		t.Fatal("Lookup(astinet plus) missed")
	}
	if astinet.TierLevel != 2 || astinet.CostTier != 2 {
		t.Errorf("Astinet tiers = (%d, %d), want (2, 2) inferred from nomenclature", astinet.TierLevel, astinet.CostTier)
	}
	if astinet.Complexity != ComplexityMedium {
		t.Errorf("Astinet complexity = %v, want Medium inferred from name", astinet.Complexity)
	}

	security, _ := c.Lookup("Managed Security Enterprise")
	if security.Complexity != ComplexityComplex {
		t.Errorf("security complexity = %v, want Complex", security.Complexity)
	}
	if !security.TargetsIndustry("banking & financial") {
		t.Error("TargetsIndustry should match case-insensitively")
	}

	cctv, _ := c.Lookup("CCTV CLOUD BASIC")
	if cctv.CostTier != 1 {
		t.Errorf("cctv cost tier = %d, want 1", cctv.CostTier)
	}
	if !cctv.HasTag("Retention") {
		t.Error("HasTag should match case-insensitively")
	}
	if cctv.AvailableIn("SURABAYA") {
		t.Error("cctv should not be available outside its region list")
	}
	if !cctv.AvailableIn("jakarta") {
		t.Error("cctv should be available in a listed region")
	}
	if !astinet.AvailableIn("ANYWHERE") {
		t.Error("empty region list means available everywhere")
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadCatalog() error = nil for missing file")
	}
}

func TestParseCatalogEmpty(t *testing.T) {
	_, err := ParseCatalog([]byte("products: []\n"))
	if err == nil {
		t.Fatal("ParseCatalog() error = nil for empty catalog")
	}
	var insufficient *domain.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Errorf("ParseCatalog() error = %T, want *domain.InsufficientDataError", err)
	}
}

func TestParseCatalogDuplicateName(t *testing.T) {
	data := []byte("products:\n  - name: Twice\n    category: A\n  - name: TWICE\n    category: B\n")
	_, err := ParseCatalog(data)
	if err == nil {
		t.Fatal("ParseCatalog() error = nil for duplicate product names")
	}
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("ParseCatalog() error = %T, want *domain.ConfigurationError", err)
	}
}

func TestPlaybookOffers(t *testing.T) {
	offers := PlaybookOffers("BANKING & FINANCIAL", []string{"IP VPN"}, 2)
	if len(offers) != 2 {
		t.Fatalf("PlaybookOffers() returned %d offers, want 2", len(offers))
	}
	for _, o := range offers {
		if o == "IP VPN" {
			t.Error("held product leaked into playbook offers")
		}
	}

	if got := PlaybookOffers("UNKNOWN SEGMENT", nil, 2); got != nil {
		t.Errorf("PlaybookOffers(unknown) = %v, want nil", got)
	}

	if _, ok := PlayFor("MANUFACTURE"); !ok {
		t.Error("PlayFor should accept the MANUFACTURE spelling")
	}
}

func TestPlayPrioritizesSKUVariants(t *testing.T) {
	play, ok := PlayFor("GOVERNMENT")
	if !ok {
		t.Fatal("PlayFor(GOVERNMENT) not found")
	}
	for _, name := range []string{"Smart City", "Smart City Platform", "e-Government Portal"} {
		if !play.Prioritizes(name) {
			t.Errorf("Prioritizes(%q) = false, want true", name)
		}
	}
	if play.Prioritizes("Astinet Basic") {
		t.Error("Prioritizes(Astinet Basic) = true, want false")
	}
}

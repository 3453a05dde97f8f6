package scoring

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Complexity grades how much organizational buy-in a product needs.
type Complexity string

const (
	ComplexitySimple  Complexity = "Simple"
	ComplexityMedium  Complexity = "Medium"
	ComplexityComplex Complexity = "Complex"
)

// tierLevels maps nomenclature groups to an ordinal tier. Unknown groups
// read as mid-tier rather than failing a lookup.
var tierLevels = map[string]int{
	"DI-TS":           1,
	"DI-SDS-TS":       2,
	"DI-SDS-SDS":      3,
	"ALL NOMENKLATUR": 4,
}

const defaultTierLevel = 2

// complexityKeywords drive name-based complexity inference. Groups are
// checked in order, so a name matching several grades takes the first.
var complexityKeywords = []struct {
	complexity Complexity
	keywords   []string
}{
	{ComplexitySimple, []string{"basic", "starter", "light", "essential", "entry", "bronze"}},
	{ComplexityMedium, []string{"standard", "professional", "plus", "advanced", "silver", "medium"}},
	{ComplexityComplex, []string{"enterprise", "premium", "ultimate", "managed", "gold", "platinum", "deluxe"}},
}

// ARPU band boundaries in IDR per month.
const (
	arpuEntryMax = 1_000_000
	arpuMidMax   = 3_500_000
	arpuHighMax  = 15_000_000
)

// ARPUBand buckets monthly revenue into affordability bands. Zero revenue
// is a bundled or free service, not a micro customer.
func ARPUBand(revenue float64) (string, int) {
	switch {
	case revenue == 0:
		return "Bundled/Free", 0
	case revenue < arpuEntryMax:
		return "Entry", 1
	case revenue < arpuMidMax:
		return "Mid", 2
	case revenue < arpuHighMax:
		return "High", 3
	default:
		return "Enterprise", 4
	}
}

// TierLevelFor resolves a customer tier group to its ordinal level.
func TierLevelFor(tierGroup string) int {
	if level, ok := tierLevels[strings.ToUpper(strings.TrimSpace(tierGroup))]; ok {
		return level
	}
	return defaultTierLevel
}

// InferComplexity guesses product complexity from its name.
func InferComplexity(name string) Complexity {
	lower := strings.ToLower(name)
	for _, group := range complexityKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.complexity
			}
		}
	}
	return ComplexityMedium
}

// EstimateCostTier derives a 1..4 cost tier from the nomenclature group.
func EstimateCostTier(nomenclature string) int {
	nom := strings.ToUpper(nomenclature)
	switch {
	case strings.Contains(nom, "DI-SDS-SDS"):
		return 3
	case strings.Contains(nom, "DI-SDS-TS"):
		return 2
	case strings.Contains(nom, "DI-TS"):
		return 1
	default:
		return defaultTierLevel
	}
}

// Product is one sellable catalog entry. Zero-value TierLevel, CostTier,
// and Complexity are inferred from the nomenclature and name at load so
// the catalog file only has to state what differs from the inference.
type Product struct {
	Name             string     `yaml:"name" json:"name"`
	Category         string     `yaml:"category" json:"category"`
	Nomenclature     string     `yaml:"nomenclature" json:"nomenclature"`
	TierLevel        int        `yaml:"tier_level" json:"tier_level"`
	CostTier         int        `yaml:"cost_tier" json:"cost_tier"`
	MinBandwidthMbps float64    `yaml:"min_bandwidth_mbps" json:"min_bandwidth_mbps"`
	Complexity       Complexity `yaml:"complexity" json:"complexity"`
	TargetIndustries []string   `yaml:"target_industries" json:"target_industries,omitempty"`
	Regions          []string   `yaml:"regions" json:"regions,omitempty"`
	Tags             []string   `yaml:"tags" json:"tags,omitempty"`
}

// HasTag reports whether the product carries the named tag.
func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// AvailableIn reports regional availability. An empty region list means
// the product sells everywhere.
func (p Product) AvailableIn(region string) bool {
	if len(p.Regions) == 0 {
		return true
	}
	for _, r := range p.Regions {
		if strings.EqualFold(r, region) {
			return true
		}
	}
	return false
}

// TargetsIndustry reports whether the product names industry as a target.
func (p Product) TargetsIndustry(industry string) bool {
	for _, t := range p.TargetIndustries {
		if strings.EqualFold(t, industry) {
			return true
		}
	}
	return false
}

// Catalog is the loaded product catalog with name lookups.
type Catalog struct {
	Products []Product
	byName   map[string]*Product
}

type catalogFile struct {
	Products []Product `yaml:"products"`
}

// LoadCatalog reads the product catalog and fills inferred fields.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a Catalog from raw yaml.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, &domain.InsufficientDataError{Stage: "catalog load", Need: 1, Got: 0}
	}

	c := &Catalog{
		Products: f.Products,
		byName:   make(map[string]*Product, len(f.Products)),
	}
	for i := range c.Products {
		p := &c.Products[i]
		if p.Name == "" {
			return nil, &domain.ConfigurationError{Field: "catalog.products", Reason: fmt.Sprintf("product %d has no name", i)}
		}
		if p.TierLevel == 0 {
			p.TierLevel = TierLevelFor(p.Nomenclature)
		}
		if p.CostTier == 0 {
			p.CostTier = EstimateCostTier(p.Nomenclature)
		}
		if p.Complexity == "" {
			p.Complexity = InferComplexity(p.Name)
		}
		key := strings.ToUpper(p.Name)
		if _, dup := c.byName[key]; dup {
			return nil, &domain.ConfigurationError{Field: "catalog.products", Reason: fmt.Sprintf("duplicate product %q", p.Name)}
		}
		c.byName[key] = p
	}
	return c, nil
}

// Len returns the number of catalog products.
func (c *Catalog) Len() int { return len(c.Products) }

// Lookup finds a product by name, case-insensitive.
func (c *Catalog) Lookup(name string) (*Product, bool) {
	p, ok := c.byName[strings.ToUpper(name)]
	return p, ok
}

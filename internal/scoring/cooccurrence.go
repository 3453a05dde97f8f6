package scoring

import "strings"

// CoOccurrence counts how often product pairs appear in the same customer
// portfolio. Lookups are keyed on upper-cased names so catalog and extract
// spellings meet in the middle.
type CoOccurrence struct {
	pairs          map[string]map[string]int
	productCounts  map[string]int
	totalCompanies int
}

// BuildCoOccurrence counts product pairs across customer portfolios.
// Each customer contributes one count per unordered pair it holds.
func BuildCoOccurrence(portfolios [][]string) *CoOccurrence {
	m := &CoOccurrence{
		pairs:         make(map[string]map[string]int),
		productCounts: make(map[string]int),
	}
	for _, products := range portfolios {
		m.totalCompanies++
		seen := make([]string, 0, len(products))
		for _, p := range products {
			key := strings.ToUpper(strings.TrimSpace(p))
			if key == "" {
				continue
			}
			seen = append(seen, key)
			m.productCounts[key]++
		}
		for i, p1 := range seen {
			for _, p2 := range seen[i+1:] {
				if p1 == p2 {
					continue
				}
				m.addPair(p1, p2)
				m.addPair(p2, p1)
			}
		}
	}
	return m
}

func (m *CoOccurrence) addPair(a, b string) {
	inner, ok := m.pairs[a]
	if !ok {
		inner = make(map[string]int)
		m.pairs[a] = inner
	}
	inner[b]++
}

// Boost returns the co-occurrence fraction in [0,1] for offering candidate
// to a customer holding the given products. Each held product contributes
// its pair frequency against the whole customer base; the sum is capped
// at 1 before scaling into the factor weight.
func (m *CoOccurrence) Boost(held []string, candidate string) float64 {
	if m.totalCompanies == 0 {
		return 0
	}
	candKey := strings.ToUpper(strings.TrimSpace(candidate))
	var boost float64
	for _, h := range held {
		inner, ok := m.pairs[strings.ToUpper(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		count := inner[candKey]
		if count == 0 {
			continue
		}
		boost += float64(count) / float64(m.totalCompanies) * 2
	}
	if boost > 1 {
		return 1
	}
	return boost
}

// PairCount returns the raw co-occurrence count between two products.
func (m *CoOccurrence) PairCount(a, b string) int {
	inner, ok := m.pairs[strings.ToUpper(strings.TrimSpace(a))]
	if !ok {
		return 0
	}
	return inner[strings.ToUpper(strings.TrimSpace(b))]
}

// UniqueProducts returns how many distinct products were observed.
func (m *CoOccurrence) UniqueProducts() int { return len(m.productCounts) }

// Companies returns how many portfolios were analyzed.
func (m *CoOccurrence) Companies() int { return m.totalCompanies }

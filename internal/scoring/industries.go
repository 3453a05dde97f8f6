package scoring

import "strings"

// IndustryPlay is the sales playbook for one industry vertical: the
// products to lead with and the one-line rationale account teams quote.
type IndustryPlay struct {
	PriorityProducts []string
	Reasoning        string
}

var industryPlaybook = map[string]IndustryPlay{
	"BANKING & FINANCIAL": {
		PriorityProducts: []string{"IP VPN", "Managed Security", "CCTV Analytics", "Backup Link"},
		Reasoning:        "Banking requires high security and compliance",
	},
	"GOVERNMENT": {
		PriorityProducts: []string{"Smart City", "PV Rooftop", "Command Center", "e-Government"},
		Reasoning:        "Government needs public service and green energy",
	},
	"MANUFACTURING": {
		PriorityProducts: []string{"IoT Platform", "Green Eco", "Smart Factory", "Predictive Maintenance"},
		Reasoning:        "Manufacturing needs efficiency and Industry 4.0",
	},
	"EDUCATION": {
		PriorityProducts: []string{"WiFi Campus", "Video Conference", "Digital Library", "E-Learning"},
		Reasoning:        "Education needs connectivity and digital learning",
	},
	"RETAIL": {
		PriorityProducts: []string{"SD-WAN", "POS System", "CCTV", "Managed WiFi"},
		Reasoning:        "Retail needs connectivity and customer analytics",
	},
	"HEALTHCARE": {
		PriorityProducts: []string{"Telemedicine", "Medical IoT", "Backup Connectivity", "Secure Network"},
		Reasoning:        "Healthcare needs reliability and patient data security",
	},
}

// PlayFor returns the playbook entry for an industry. The lookup tolerates
// variant spellings like MANUFACTURE vs MANUFACTURING and the retail
// distribution segment label.
func PlayFor(industry string) (IndustryPlay, bool) {
	key := strings.ToUpper(strings.TrimSpace(industry))
	if play, ok := industryPlaybook[key]; ok {
		return play, true
	}
	switch {
	case strings.HasPrefix(key, "MANUFACTUR"):
		return industryPlaybook["MANUFACTURING"], true
	case strings.HasPrefix(key, "RETAIL"):
		return industryPlaybook["RETAIL"], true
	case strings.HasPrefix(key, "BANKING"):
		return industryPlaybook["BANKING & FINANCIAL"], true
	}
	return IndustryPlay{}, false
}

// Prioritizes reports whether a product belongs to one of the play's
// priority families. Playbooks name families ("Smart City") while the
// catalog names SKUs ("Smart City Platform"), so this is a containment
// check rather than an exact match.
func (p IndustryPlay) Prioritizes(productName string) bool {
	name := strings.ToUpper(productName)
	for _, family := range p.PriorityProducts {
		if strings.Contains(name, strings.ToUpper(family)) {
			return true
		}
	}
	return false
}

// PlaybookOffers returns the playbook products for an industry that the
// customer does not already hold, capped at limit.
func PlaybookOffers(industry string, held []string, limit int) []string {
	play, ok := PlayFor(industry)
	if !ok {
		return nil
	}
	heldSet := make(map[string]bool, len(held))
	for _, h := range held {
		heldSet[strings.ToUpper(strings.TrimSpace(h))] = true
	}
	var out []string
	for _, p := range play.PriorityProducts {
		if heldSet[strings.ToUpper(p)] {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// regulatedIndustries get a security-product affinity bump even without an
// explicit target-industry listing.
var regulatedIndustries = map[string]bool{
	"BANKING & FINANCIAL": true,
	"GOVERNMENT":          true,
}

func isRegulated(industry string) bool {
	return regulatedIndustries[strings.ToUpper(strings.TrimSpace(industry))]
}

func isManufacturing(industry string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(industry)), "MANUFACTUR")
}

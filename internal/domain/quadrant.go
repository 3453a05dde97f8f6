package domain

// SalesQuadrant is one cell of the Revenue × Bandwidth matrix, evaluated
// against the customer's own cluster medians.
type SalesQuadrant string

const (
	SalesStarClient SalesQuadrant = "star_client"
	SalesRiskArea   SalesQuadrant = "risk_area"
	SalesSniperZone SalesQuadrant = "sniper_zone"
	SalesIncubator  SalesQuadrant = "incubator"
	// SalesExcluded marks records withheld from the sales matrix because
	// they are not upsell-eligible.
	SalesExcluded SalesQuadrant = "excluded"
)

// TrustQuadrant is one cell of the LTV × Tenure matrix.
type TrustQuadrant string

const (
	TrustChampion      TrustQuadrant = "champion"
	TrustHighPotential TrustQuadrant = "high_potential"
	TrustLoyalValue    TrustQuadrant = "loyal_value"
	TrustNewbie        TrustQuadrant = "newbie"
	TrustExcluded      TrustQuadrant = "excluded"
)

// QuadrantStrategy carries the playbook attached to a quadrant cell.
type QuadrantStrategy struct {
	Strategy string `json:"strategy"`
	Action   string `json:"action"`
	Color    string `json:"color"`
}

var salesStrategies = map[SalesQuadrant]QuadrantStrategy{
	SalesStarClient: {
		Strategy: "RETENTION",
		Action:   "Maintain satisfaction, offer premium support and long-term contract",
		Color:    "#4CAF50",
	},
	SalesRiskArea: {
		Strategy: "CROSS_SELL",
		Action:   "Offer value-add digital products (security, managed services)",
		Color:    "#FF5722",
	},
	SalesSniperZone: {
		Strategy: "UPSELL",
		Action:   "Offer bandwidth upgrade at the appropriate price tier",
		Color:    "#2196F3",
	},
	SalesIncubator: {
		Strategy: "AUTOMATION",
		Action:   "Incubator program, low-touch nurture and education",
		Color:    "#9E9E9E",
	},
	SalesExcluded: {
		Strategy: "NONE",
		Action:   "Not upsell-eligible; see cross-sell and retention reporting",
		Color:    "#BDBDBD",
	},
}

var trustStrategies = map[TrustQuadrant]QuadrantStrategy{
	TrustChampion: {
		Strategy: "ADVOCACY",
		Action:   "Referral program and big-ticket cross-sell (PV rooftop, smart building)",
		Color:    "#2E7D32",
	},
	TrustHighPotential: {
		Strategy: "LOCK_IN",
		Action:   "Secure a long-term contract while early satisfaction is high",
		Color:    "#1565C0",
	},
	TrustLoyalValue: {
		Strategy: "NUDGING",
		Action:   "Gradual upsell, new product trials, loyalty rewards",
		Color:    "#F57C00",
	},
	TrustNewbie: {
		Strategy: "ONBOARDING",
		Action:   "Education and onboarding program, simple bundles",
		Color:    "#757575",
	},
	TrustExcluded: {
		Strategy: "NONE",
		Action:   "Withheld from trust matrix by exclusion scope",
		Color:    "#BDBDBD",
	},
}

// StrategyFor returns the playbook for a sales quadrant.
func (q SalesQuadrant) StrategyFor() QuadrantStrategy { return salesStrategies[q] }

// StrategyFor returns the playbook for a trust quadrant.
func (q TrustQuadrant) StrategyFor() QuadrantStrategy { return trustStrategies[q] }

// QuadrantLabel holds both matrix placements for one customer in one run.
// PriceSensitive flags the loyal-but-low-LTV renewal risk called out by the
// trust matrix.
type QuadrantLabel struct {
	CustomerID     string        `json:"customer_id" db:"customer_id"`
	Sales          SalesQuadrant `json:"sales_quadrant" db:"sales_quadrant"`
	SalesStrategy  string        `json:"sales_strategy" db:"sales_strategy"`
	SalesAction    string        `json:"sales_action" db:"sales_action"`
	Trust          TrustQuadrant `json:"trust_quadrant" db:"trust_quadrant"`
	TrustStrategy  string        `json:"trust_strategy" db:"trust_strategy"`
	TrustAction    string        `json:"trust_action" db:"trust_action"`
	LTV            float64       `json:"ltv" db:"ltv"`
	PriceSensitive bool          `json:"price_sensitive" db:"price_sensitive"`
	// GlobalFallback is true when the customer's cluster had undefined
	// thresholds and global medians were used instead.
	GlobalFallback bool `json:"global_fallback" db:"global_fallback"`
}

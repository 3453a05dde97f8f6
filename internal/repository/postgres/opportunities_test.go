package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/reporting"
)

var opportunityTestColumns = []string{
	"run_id", "customer_id", "customer_name", "industry", "region", "category",
	"tier_group", "monthly_revenue", "bandwidth_mbps", "tenure_months",
	"cluster", "eligible", "excluded_reason", "sales_quadrant", "trust_quadrant",
	"ltv", "upsell_score", "cross_sell_score", "value_12m", "confidence",
	"priority", "tenure_strategy", "offers", "upsell_potential",
	"cross_sell_potential", "potential_value", "rank", "created_at",
}

func testOpportunity(id string) domain.OpportunityRecord {
	return domain.OpportunityRecord{
		RunID:          "run-1",
		CustomerID:     id,
		CustomerName:   "PT MAJU BERSAMA",
		Industry:       "BANKING & FINANCIAL SERVICES",
		Region:         "JAKARTA",
		Category:       "ENTERPRISE",
		TierGroup:      "DI-SDS-TS",
		MonthlyRevenue: 5000000,
		BandwidthMbps:  100,
		TenureMonths:   24,
		Cluster:        domain.ClusterMid,
		Eligible:       true,
		SalesQuadrant:  domain.SalesStarClient,
		TrustQuadrant:  domain.TrustChampion,
		LTV:            120000000,
		UpsellScore:    0.82,
		CrossSellScore: 0.61,
		Value12M:       60000000,
		Confidence:     0.8,
		Priority:       domain.PriorityHigh,
		TenureStrategy: domain.TenureGrowth,
		Offers: []domain.Offer{
			{ProductName: "Astinet Premium", Score: 8.2, Priority: domain.PriorityHigh},
		},
		UpsellPotential:    18000000,
		CrossSellPotential: 15000000,
		PotentialValue:     33000000,
		Rank:               1,
		CreatedAt:          time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
	}
}

func opportunityRows(t *testing.T, recs ...domain.OpportunityRecord) *sqlmock.Rows {
	t.Helper()
	rows := sqlmock.NewRows(opportunityTestColumns)
	for _, o := range recs {
		offers, err := json.Marshal(o.Offers)
		if err != nil {
			t.Fatalf("marshal offers: %v", err)
		}
		rows.AddRow(
			o.RunID, o.CustomerID, o.CustomerName, o.Industry, o.Region, o.Category,
			o.TierGroup, o.MonthlyRevenue, o.BandwidthMbps, o.TenureMonths,
			string(o.Cluster), o.Eligible, o.ExcludedReason, string(o.SalesQuadrant), string(o.TrustQuadrant),
			o.LTV, o.UpsellScore, o.CrossSellScore, o.Value12M, o.Confidence,
			string(o.Priority), string(o.TenureStrategy), offers, o.UpsellPotential,
			o.CrossSellPotential, o.PotentialValue, o.Rank, o.CreatedAt,
		)
	}
	return rows
}

func TestOpportunityRepoGet(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	want := testOpportunity("C-1")
	mock.ExpectQuery("SELECT (.+) FROM cvo_opportunities").
		WithArgs("run-1", "C-1").
		WillReturnRows(opportunityRows(t, want))

	repo := NewOpportunityRepo(db)
	got, err := repo.Get(context.Background(), "run-1", "C-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.CustomerName != want.CustomerName {
		t.Errorf("CustomerName = %q, want %q", got.CustomerName, want.CustomerName)
	}
	if got.Cluster != domain.ClusterMid {
		t.Errorf("Cluster = %q, want mid", got.Cluster)
	}
	if got.SalesQuadrant != domain.SalesStarClient {
		t.Errorf("SalesQuadrant = %q, want star_client", got.SalesQuadrant)
	}
	if got.TierGroup != "DI-SDS-TS" {
		t.Errorf("TierGroup = %q, want DI-SDS-TS", got.TierGroup)
	}
	if len(got.Offers) != 1 || got.Offers[0].ProductName != "Astinet Premium" {
		t.Errorf("Offers = %v, want Astinet Premium", got.Offers)
	}
	if got.Rank != 1 {
		t.Errorf("Rank = %d, want 1", got.Rank)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpportunityRepoGetNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM cvo_opportunities").
		WithArgs("run-1", "missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewOpportunityRepo(db)
	if _, err := repo.Get(context.Background(), "run-1", "missing"); err != domain.ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestOpportunityRepoListFilters(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM cvo_opportunities WHERE run_id = \$1 AND cluster = \$2 AND priority = \$3`).
		WithArgs("run-1", "mid", "High").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`WHERE run_id = \$1 AND cluster = \$2 AND priority = \$3 ORDER BY rank ASC LIMIT \$4 OFFSET \$5`).
		WithArgs("run-1", "mid", "High", 25, 0).
		WillReturnRows(opportunityRows(t, testOpportunity("C-1")))

	repo := NewOpportunityRepo(db)
	out, total, err := repo.List(context.Background(), "run-1", reporting.ListFilter{
		Cluster:  "mid",
		Priority: "High",
		Limit:    25,
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
	if len(out) != 1 || out[0].CustomerID != "C-1" {
		t.Errorf("List() rows = %v, want one C-1 row", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpportunityRepoListSearch(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	// One placeholder serves both the name and the id match.
	mock.ExpectQuery(`customer_name ILIKE \$2 OR customer_id ILIKE \$2`).
		WithArgs("run-1", "%MAJU%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`customer_name ILIKE \$2 OR customer_id ILIKE \$2(.+)LIMIT \$3 OFFSET \$4`).
		WithArgs("run-1", "%MAJU%", 50, 0).
		WillReturnRows(opportunityRows(t, testOpportunity("C-1")))

	repo := NewOpportunityRepo(db)
	out, total, err := repo.List(context.Background(), "run-1", reporting.ListFilter{Search: "MAJU"})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 1 || len(out) != 1 {
		t.Errorf("List() = %d rows, total %d, want 1 and 1", len(out), total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpportunityRepoTopUpsell(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`WHERE run_id = \$1 AND eligible AND upsell_score > 0 ORDER BY rank ASC`).
		WithArgs("run-1", 10).
		WillReturnRows(opportunityRows(t, testOpportunity("C-1"), testOpportunity("C-2")))

	repo := NewOpportunityRepo(db)
	out, err := repo.TopUpsell(context.Background(), "run-1", 0)
	if err != nil {
		t.Fatalf("TopUpsell() error: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("TopUpsell() returned %d rows, want 2", len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpportunityRepoTopCrossSell(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`WHERE run_id = \$1 AND cross_sell_score > 0 ORDER BY cross_sell_score DESC`).
		WithArgs("run-1", 5).
		WillReturnRows(opportunityRows(t, testOpportunity("C-9")))

	repo := NewOpportunityRepo(db)
	out, err := repo.TopCrossSell(context.Background(), "run-1", 5)
	if err != nil {
		t.Fatalf("TopCrossSell() error: %v", err)
	}
	if len(out) != 1 || out[0].CustomerID != "C-9" {
		t.Errorf("TopCrossSell() = %v, want one C-9 row", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpportunityRepoDistribution(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT industry, COUNT\(\*\)`).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"industry", "count"}).
			AddRow("BANKING & FINANCIAL SERVICES", 5).
			AddRow("GOVERNMENT", 3))

	repo := NewOpportunityRepo(db)
	out, err := repo.Distribution(context.Background(), "run-1", "industry")
	if err != nil {
		t.Fatalf("Distribution() error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Distribution() returned %d facets, want 2", len(out))
	}
	if out[0].Value != "BANKING & FINANCIAL SERVICES" || out[0].Count != 5 {
		t.Errorf("first facet = %+v, want banking with 5", out[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOpportunityRepoDistributionUnknownDimension(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOpportunityRepo(db)
	if _, err := repo.Distribution(context.Background(), "run-1", "region; DROP TABLE"); err == nil {
		t.Error("Distribution() accepted an unknown dimension")
	}
}

func TestOpportunityRepoTopOffers(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`jsonb_array_elements\(offers\)`).
		WithArgs("run-1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"product_name", "count"}).
			AddRow("Astinet Premium", 9).
			AddRow("Managed Security Pro", 4))

	repo := NewOpportunityRepo(db)
	out, err := repo.TopOffers(context.Background(), "run-1", 3)
	if err != nil {
		t.Fatalf("TopOffers() error: %v", err)
	}
	if len(out) != 2 || out[0].Value != "Astinet Premium" {
		t.Errorf("TopOffers() = %v, want Astinet Premium first", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

func TestNewSelectsSource(t *testing.T) {
	cfg := &config.Config{}
	cfg.Ingest.Source = config.SourceLocal
	cfg.Ingest.Path = "extract.csv"

	src, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := src.(*LocalSource); !ok {
		t.Errorf("New() = %T, want *LocalSource", src)
	}
}

func TestNewUnknownSource(t *testing.T) {
	cfg := &config.Config{}
	cfg.Ingest.Source = "carrier_pigeon"

	_, err := New(context.Background(), cfg)
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("New() error = %v, want ConfigurationError", err)
	}
	if cfgErr.Field != "ingest.source" {
		t.Errorf("Field = %q, want ingest.source", cfgErr.Field)
	}
}

func TestLocalSourceOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.csv")
	content := "idPelanggan,hargaPelanggan\nC-1,5.000.000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, name, err := NewLocalSource(path).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	if name != "extract.csv" {
		t.Errorf("name = %q, want extract.csv", name)
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", data, content)
	}
}

func TestLocalSourceMissingFile(t *testing.T) {
	src := NewLocalSource(filepath.Join(t.TempDir(), "absent.csv"))
	if _, _, err := src.Open(context.Background()); err == nil {
		t.Error("Open() on missing file succeeded")
	}
}

func TestLocalSourceNoPath(t *testing.T) {
	if _, _, err := NewLocalSource("").Open(context.Background()); err == nil {
		t.Error("Open() with empty path succeeded")
	}
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SnowflakeConfig
		want string
	}{
		{
			"with warehouse",
			config.SnowflakeConfig{
				Account: "ORG-ACCT", User: "pipeline", Password: "secret",
				Database: "CVO_DATA_LAKE", Schema: "CUSTOMER_EXTRACTS", Warehouse: "REPORTING_WH",
			},
			"pipeline:secret@ORG-ACCT/CVO_DATA_LAKE/CUSTOMER_EXTRACTS?warehouse=REPORTING_WH",
		},
		{
			"without warehouse",
			config.SnowflakeConfig{
				Account: "ORG-ACCT", User: "pipeline", Password: "secret",
				Database: "CVO_DATA_LAKE", Schema: "CUSTOMER_EXTRACTS",
			},
			"pipeline:secret@ORG-ACCT/CVO_DATA_LAKE/CUSTOMER_EXTRACTS",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildDSN(tt.cfg); got != tt.want {
				t.Errorf("BuildDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSnowflakeSourceNeedsAccount(t *testing.T) {
	_, err := NewSnowflakeSource(config.SnowflakeConfig{User: "pipeline"})
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error = %v, want ConfigurationError", err)
	}
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func assertCSVLine(t *testing.T, got, line string) {
	t.Helper()
	if !strings.Contains(got, line) {
		t.Errorf("output missing line %q in:\n%s", line, got)
	}
}

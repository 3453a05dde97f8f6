//go:build ignore
// +build ignore

// Synthetic billing-extract generator for local pipeline runs.
//
// Produces a CSV with the Indonesian headers and the messy value formats
// the normalizer has to cope with: mixed bandwidth units, IP-count rows,
// quoted tenures, unverified contracts and locale-formatted rupiah.
//
// Usage:
//
//	go run scripts/gen_extract.go -rows 2000 -out data/extract.csv
//	go run scripts/gen_extract.go -rows 500 -seed 7 -dirty 0.05
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
)

var industries = []string{
	"GOVERNMENT", "BANKING & FINANCIAL", "MANUFACTURE", "EDUCATION",
	"RETAIL & DISTRIBUTION", "HEALTHCARE", "LOGISTICS",
}

var regions = []string{
	"JAKARTA", "BANDUNG", "SURABAYA", "MEDAN", "MAKASSAR", "SEMARANG",
}

var tiers = []string{"DI-TS", "DI-SDS-TS", "DI-SDS-SDS", "ALL NOMENKLATUR"}

var categories = []string{
	"Connectivity", "Technology Services", "Digital Infrastructure",
}

var products = []string{
	"Astinet Basic", "Astinet Professional", "Metro Ethernet Standard",
	"IP VPN", "Managed WiFi Standard", "Cloud Starter", "CCTV Analytics",
	"Video Conference Essential",
}

var namePrefixes = []string{
	"PT", "CV", "Dinas", "Universitas", "RSUD", "Bank", "Yayasan",
}

var nameWords = []string{
	"Nusantara", "Sejahtera", "Mandiri", "Utama", "Persada", "Cemerlang",
	"Harapan", "Karya", "Makmur", "Abadi", "Prima", "Sentosa",
}

func main() {
	rows := flag.Int("rows", 1000, "number of service rows to generate")
	out := flag.String("out", "data/extract.csv", "output CSV path")
	seed := flag.Int64("seed", 42, "rng seed, fixed for reproducible extracts")
	dirty := flag.Float64("dirty", 0.1, "fraction of rows with messy or invalid values")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"idPelanggan", "namaPelanggan", "segmenCustomer", "Wilayah",
		"Kategori_Baru", "Kelompok Tier", "ProdukBaru", "namaLayanan",
		"Bandwidth Fix", "hargaPelanggan", "Lama_Langganan", "statusLayanan",
	}
	if err := w.Write(header); err != nil {
		log.Fatalf("write header: %v", err)
	}

	// Customers hold 1..4 service rows each, like the real extract.
	written := 0
	customer := 0
	for written < *rows {
		customer++
		id := fmt.Sprintf("CUST-%05d", customer)
		name := fmt.Sprintf("%s %s %s",
			pick(rng, namePrefixes), pick(rng, nameWords), pick(rng, nameWords))
		industry := pick(rng, industries)
		region := pick(rng, regions)
		tier := pick(rng, tiers)

		services := 1 + rng.Intn(4)
		for s := 0; s < services && written < *rows; s++ {
			product := pick(rng, products)
			row := []string{
				id, name, industry, region,
				pick(rng, categories), tier, product,
				fmt.Sprintf("%s - %s", product, region),
				bandwidth(rng, *dirty),
				revenue(rng, *dirty),
				tenure(rng, *dirty),
				status(rng, *dirty),
			}
			if err := w.Write(row); err != nil {
				log.Fatalf("write row: %v", err)
			}
			written++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("flush: %v", err)
	}
	log.Printf("Wrote %d rows (%d customers) to %s", written, customer, *out)
}

func pick(rng *rand.Rand, list []string) string {
	return list[rng.Intn(len(list))]
}

func bandwidth(rng *rand.Rand, dirty float64) string {
	if rng.Float64() < dirty {
		switch rng.Intn(4) {
		case 0:
			return fmt.Sprintf("%d IP", 1+rng.Intn(8))
		case 1:
			return "Tidak Ada"
		case 2:
			return "E1"
		default:
			return ""
		}
	}
	mbps := []int{10, 20, 50, 100, 200, 300, 500, 1000, 2000}[rng.Intn(9)]
	if mbps >= 1000 && rng.Intn(2) == 0 {
		return fmt.Sprintf("%d Gbps", mbps/1000)
	}
	return fmt.Sprintf("%d Mbps", mbps)
}

func revenue(rng *rand.Rand, dirty float64) string {
	if rng.Float64() < dirty/2 {
		return ""
	}
	// 500k..50M IDR monthly, formatted the way billing exports it.
	v := (500 + rng.Intn(49_500)) * 1000
	return fmt.Sprintf("Rp %s", dots(v))
}

func tenure(rng *rand.Rand, dirty float64) string {
	if rng.Float64() < dirty {
		switch rng.Intn(3) {
		case 0:
			return "Berkontrak di Tahun 2026"
		case 1:
			return "Data Tidak Valid"
		default:
			return fmt.Sprintf("'%d'", 1+rng.Intn(15))
		}
	}
	return fmt.Sprintf("%d", 1+rng.Intn(20))
}

func status(rng *rand.Rand, dirty float64) string {
	if rng.Float64() < dirty/2 {
		return "TIDAK AKTIF"
	}
	return "AKTIF"
}

// dots renders an integer with Indonesian thousand separators.
func dots(v int) string {
	s := fmt.Sprintf("%d", v)
	out := ""
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out += "."
		}
		out += string(r)
	}
	return out
}

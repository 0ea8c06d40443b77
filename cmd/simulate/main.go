// Simulate replays a CSV of sales against a running commission service.
//
// Usage:
//
//	go run ./cmd/simulate -csv sales.csv -company acme -url http://localhost:8080
//
// Each row is posted to /commission/simulate, so nothing is stored. The
// CSV needs a header row; recognised columns (case-insensitive) are
// userId, clientId, productType, quantity, valueProposed, marginPercent,
// paymentMethod and date. Totals are printed per campaign tag.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// SaleRow is one sale read from the CSV.
type SaleRow struct {
	Line          int     `json:"-"`
	UserID        string  `json:"userId"`
	ClientID      string  `json:"clientId,omitempty"`
	ProductType   string  `json:"productType"`
	Quantity      float64 `json:"quantity"`
	ValueProposed float64 `json:"valueProposed"`
	MarginPercent float64 `json:"marginPercent"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	Date          string  `json:"date,omitempty"`
}

// SimulateResponse holds the fields of the service response this tool reads.
type SimulateResponse struct {
	CommissionBaseTotal  float64       `json:"commissionBaseTotal"`
	CommissionValueTotal float64       `json:"commissionValueTotal"`
	Overlay              *OverlayBrief `json:"overlay"`
	Summary              string        `json:"summary"`
}

// OverlayBrief is the part of an applied overlay the totals need.
type OverlayBrief struct {
	CampaignTag string `json:"campaignTag"`
}

// Totals aggregates simulated commissions per campaign tag.
type Totals struct {
	mu     sync.Mutex
	byTag  map[string]*tagTotal
	errors int64

	processed int64
	latencyMs int64
}

type tagTotal struct {
	sales      int
	base       decimal.Decimal
	commission decimal.Decimal
}

const baseTag = "base"

func newTotals() *Totals {
	return &Totals{byTag: make(map[string]*tagTotal)}
}

func (t *Totals) add(resp *SimulateResponse) {
	tag := baseTag
	if resp.Overlay != nil && resp.Overlay.CampaignTag != "" {
		tag = resp.Overlay.CampaignTag
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tt, ok := t.byTag[tag]
	if !ok {
		tt = &tagTotal{}
		t.byTag[tag] = tt
	}
	tt.sales++
	tt.base = tt.base.Add(decimal.NewFromFloat(resp.CommissionBaseTotal))
	tt.commission = tt.commission.Add(decimal.NewFromFloat(resp.CommissionValueTotal))
}

func main() {
	csvPath := flag.String("csv", "", "Path to the sales CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Commission service base URL")
	companyID := flag.String("company", "", "Company ID sent as X-Company-ID")
	limit := flag.Int("limit", 0, "Maximum sales to simulate (0 = all)")
	workers := flag.Int("workers", 4, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each sale result")
	flag.Parse()

	if *csvPath == "" || *companyID == "" {
		fmt.Println("Usage: simulate -csv sales.csv -company <id> [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *workers < 1 {
		*workers = 1
	}

	fmt.Printf("CSV File:    %s\n", *csvPath)
	fmt.Printf("Service URL: %s\n", *baseURL)
	fmt.Printf("Company ID:  %s\n", *companyID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: service not reachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}

	sales, err := readSalesCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d sales\n", len(sales))

	start := time.Now()
	totals := run(sales, *baseURL, *companyID, *workers, *verbose)
	printTotals(totals, time.Since(start))
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readSalesCSV(path string, limit int) ([]SaleRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseSales(file, limit)
}

func parseSales(r io.Reader, limit int) ([]SaleRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := make(map[string]int)
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"userid", "producttype", "quantity", "valueproposed", "marginpercent"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	number := func(record []string, name string) (float64, error) {
		v := field(record, name)
		if v == "" {
			return 0, nil
		}
		// Accept the Brazilian decimal comma.
		return strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	}

	var sales []SaleRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := SaleRow{
			Line:          line,
			UserID:        field(record, "userid"),
			ClientID:      field(record, "clientid"),
			ProductType:   field(record, "producttype"),
			PaymentMethod: field(record, "paymentmethod"),
			Date:          field(record, "date"),
		}
		if row.Quantity, err = number(record, "quantity"); err != nil {
			return nil, fmt.Errorf("line %d: quantity: %w", line, err)
		}
		if row.ValueProposed, err = number(record, "valueproposed"); err != nil {
			return nil, fmt.Errorf("line %d: valueProposed: %w", line, err)
		}
		if row.MarginPercent, err = number(record, "marginpercent"); err != nil {
			return nil, fmt.Errorf("line %d: marginPercent: %w", line, err)
		}
		sales = append(sales, row)

		if limit > 0 && len(sales) >= limit {
			break
		}
	}
	return sales, nil
}

func run(sales []SaleRow, baseURL, companyID string, numWorkers int, verbose bool) *Totals {
	totals := newTotals()

	work := make(chan SaleRow, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for sale := range work {
				start := time.Now()
				resp, err := simulate(client, baseURL, companyID, sale)
				atomic.AddInt64(&totals.latencyMs, time.Since(start).Milliseconds())
				atomic.AddInt64(&totals.processed, 1)

				if err != nil {
					atomic.AddInt64(&totals.errors, 1)
					if verbose {
						fmt.Printf("ERROR line %d: %v\n", sale.Line, err)
					}
					continue
				}
				totals.add(resp)

				if verbose {
					fmt.Printf("line %-5d %-12s %-10s margin %6.2f%% | %10.2f | %s\n",
						sale.Line, sale.UserID, sale.ProductType, sale.MarginPercent,
						resp.CommissionValueTotal, resp.Summary)
				}
			}
		}()
	}

	for _, sale := range sales {
		work <- sale
	}
	close(work)
	wg.Wait()

	return totals
}

func simulate(client *http.Client, baseURL, companyID string, sale SaleRow) (*SimulateResponse, error) {
	body, err := json.Marshal(sale)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/commission/simulate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Company-ID", companyID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
	}

	var out SimulateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func printTotals(t *Totals, duration time.Duration) {
	tags := make([]string, 0, len(t.byTag))
	for tag := range t.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	fmt.Println()
	fmt.Printf("%-32s %8s %16s %16s\n", "CAMPAIGN TAG", "SALES", "BASE", "COMMISSION")

	var grandBase, grandCommission decimal.Decimal
	grandSales := 0
	for _, tag := range tags {
		tt := t.byTag[tag]
		fmt.Printf("%-32s %8d %16s %16s\n", tag, tt.sales, tt.base.StringFixed(2), tt.commission.StringFixed(2))
		grandSales += tt.sales
		grandBase = grandBase.Add(tt.base)
		grandCommission = grandCommission.Add(tt.commission)
	}
	fmt.Printf("%-32s %8d %16s %16s\n", "TOTAL", grandSales, grandBase.StringFixed(2), grandCommission.StringFixed(2))

	fmt.Println()
	fmt.Printf("Errors:         %d\n", t.errors)
	fmt.Printf("Total Duration: %v\n", duration.Round(time.Millisecond))
	if t.processed > 0 {
		fmt.Printf("Avg Latency:    %.2f ms\n", float64(t.latencyMs)/float64(t.processed))
	}
	fmt.Println()
}

package main

import (
	"strings"
	"testing"
)

func TestParseSales(t *testing.T) {
	t.Run("ReadsColumnsByName", func(t *testing.T) {
		input := `ProductType,userId,quantity,valueProposed,marginPercent,paymentMethod,date
RACAO,seller-1,2,"80,50",3.5,PIX,2026-03-10
SEMENTE,seller-2,1,100,8,,
`
		sales, err := parseSales(strings.NewReader(input), 0)
		if err != nil {
			t.Fatalf("parseSales failed: %v", err)
		}
		if len(sales) != 2 {
			t.Fatalf("expected 2 sales, got %d", len(sales))
		}

		first := sales[0]
		if first.Line != 2 || first.UserID != "seller-1" || first.ProductType != "RACAO" {
			t.Errorf("unexpected first sale: %+v", first)
		}
		if first.ValueProposed != 80.5 || first.MarginPercent != 3.5 || first.PaymentMethod != "PIX" {
			t.Errorf("unexpected first sale values: %+v", first)
		}
		if sales[1].PaymentMethod != "" || sales[1].Date != "" {
			t.Errorf("empty cells should stay empty: %+v", sales[1])
		}
	})

	t.Run("Limit", func(t *testing.T) {
		input := "userId,productType,quantity,valueProposed,marginPercent\n" +
			"a,RACAO,1,10,1\nb,RACAO,1,10,1\nc,RACAO,1,10,1\n"

		sales, err := parseSales(strings.NewReader(input), 2)
		if err != nil {
			t.Fatalf("parseSales failed: %v", err)
		}
		if len(sales) != 2 {
			t.Errorf("expected 2 sales, got %d", len(sales))
		}
	})

	t.Run("MissingColumn", func(t *testing.T) {
		_, err := parseSales(strings.NewReader("userId,productType,quantity\n"), 0)
		if err == nil {
			t.Error("expected error for missing columns")
		}
	})

	t.Run("BadNumber", func(t *testing.T) {
		input := "userId,productType,quantity,valueProposed,marginPercent\n" +
			"a,RACAO,one,10,1\n"
		if _, err := parseSales(strings.NewReader(input), 0); err == nil {
			t.Error("expected error for non-numeric quantity")
		}
	})
}

func TestTotals(t *testing.T) {
	totals := newTotals()

	totals.add(&SimulateResponse{CommissionBaseTotal: 0.1, CommissionValueTotal: 0.1})
	totals.add(&SimulateResponse{CommissionBaseTotal: 0.2, CommissionValueTotal: 0.2})
	totals.add(&SimulateResponse{
		CommissionBaseTotal:  5,
		CommissionValueTotal: 8,
		Overlay:              &OverlayBrief{CampaignTag: "PREMIACAO_META"},
	})

	base := totals.byTag[baseTag]
	if base == nil || base.sales != 2 {
		t.Fatalf("expected 2 base sales, got %+v", base)
	}
	if got := base.commission.StringFixed(2); got != "0.30" {
		t.Errorf("expected exact base total 0.30, got %s", got)
	}

	meta := totals.byTag["PREMIACAO_META"]
	if meta == nil || meta.sales != 1 || meta.commission.StringFixed(2) != "8.00" {
		t.Errorf("unexpected campaign totals: %+v", meta)
	}
}

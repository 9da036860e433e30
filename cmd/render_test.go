package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/kwahn/stockfolio"
)

func TestHoldingsMarkdown(t *testing.T) {
	holdings := []stockfolio.Holding{
		{
			Position: stockfolio.Position{
				Ticker:   "005930",
				Market:   stockfolio.MarketKR,
				Quantity: stockfolio.Q(10),
			},
			Name:   "Samsung Electronics",
			Close:  stockfolio.KRW(70000),
			Value:  stockfolio.KRW(700000),
			Weight: stockfolio.Percent(100),
		},
	}

	md := holdingsMarkdown(holdings)
	for _, want := range []string{"005930", "Samsung Electronics", "| Ticker |"} {
		if !strings.Contains(md, want) {
			t.Errorf("holdings markdown is missing %q:\n%s", want, md)
		}
	}
}

func TestMonthlyMarkdown_ZeroPadsMonth(t *testing.T) {
	months := []stockfolio.MonthlyReturn{
		{Year: 2025, Month: time.March, PnL: stockfolio.KRW(1000), Return: stockfolio.Percent(1)},
	}
	if md := monthlyMarkdown(months); !strings.Contains(md, "2025-03") {
		t.Errorf("monthly markdown must zero-pad the month:\n%s", md)
	}
}

func TestRiskMarkdown_EmptySeries(t *testing.T) {
	md := riskMarkdown(stockfolio.RiskReport{})
	if !strings.Contains(md, "none recorded") {
		t.Errorf("risk markdown must handle an empty series:\n%s", md)
	}
	if strings.Contains(md, "Concentration") {
		t.Errorf("risk markdown must omit the concentration section when empty:\n%s", md)
	}
}

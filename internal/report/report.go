// Package report formats account reports for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/orderband/internal/domain"
)

// recentCandles is how many trailing candles the account table shows.
const recentCandles = 10

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF6B6B"}

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(special).MarginTop(1)
	okStyle      = lipgloss.NewStyle().Foreground(special)
	badStyle     = lipgloss.NewStyle().Foreground(warning)

	hundred = decimal.NewFromInt(100)
)

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *domain.AccountReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Render returns a human-readable report.
func Render(r *domain.AccountReport) string {
	if r == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Account %s as of %s", r.AccountID, r.AsOf.Format("2006-01-02"))))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("run %s | candles %dd | window %dd | bands %d×%s | rsi %d\n",
		r.RunID, r.Params.PeriodDays, r.Params.WindowDays, r.Params.BBWindow, r.Params.BBK.String(), r.Params.RSIWindow))
	if r.Discarded > 0 {
		sb.WriteString(badStyle.Render(fmt.Sprintf("%d malformed order lines discarded", r.Discarded)))
		sb.WriteString("\n")
	}

	sb.WriteString(sectionStyle.Render("Account trend"))
	sb.WriteString("\n")
	sb.WriteString(formatCandles(&r.Account, recentCandles))
	if r.AccountRSITrend != "" {
		sb.WriteString(fmt.Sprintf("RSI trend: %s\n", r.AccountRSITrend.Title()))
	}

	sb.WriteString(sectionStyle.Render("Products"))
	sb.WriteString("\n")
	for _, p := range r.Products {
		sb.WriteString(formatProduct(p))
	}

	if len(r.Unresolved) > 0 {
		sb.WriteString(badStyle.Render("Unresolved prices: " + strings.Join(r.Unresolved, ", ")))
		sb.WriteString("\n")
	}

	if len(r.Opportunities) > 0 {
		sb.WriteString(sectionStyle.Render("Opportunities"))
		sb.WriteString("\n")
		sb.WriteString(formatOpportunities(r.Opportunities))
	}

	if r.Overview != nil {
		sb.WriteString(sectionStyle.Render(fmt.Sprintf("Account overview (next %d days)", r.Overview.HorizonDays)))
		sb.WriteString("\n")
		sb.WriteString(formatOverview(r.Overview))
	}

	return sb.String()
}

func formatCandles(tf *domain.Timeframe, limit int) string {
	if tf == nil || len(tf.Candles) == 0 {
		return "No data available\n"
	}

	var sb strings.Builder
	sb.WriteString("Period     | Close      | Lower      | Middle     | Upper      | RSI   | Pos\n")
	sb.WriteString("-----------|------------|------------|------------|------------|-------|------\n")

	start := len(tf.Candles) - limit
	if start < 0 {
		start = 0
	}
	for i := start; i < len(tf.Candles); i++ {
		c := tf.Candles[i]
		period := c.PeriodStart.Format("2006-01-02")
		if c.Live {
			period += "*"
		}
		sb.WriteString(fmt.Sprintf("%-10s | %10s", period, c.Close.StringFixed(2)))
		if i < len(tf.Indicators) {
			ind := tf.Indicators[i]
			sb.WriteString(fmt.Sprintf(" | %10s | %10s | %10s | %5s | %5s",
				optional(ind.BBLower, 2),
				optional(ind.BBMiddle, 2),
				optional(ind.BBUpper, 2),
				optional(ind.RSI, 1),
				optional(percent(ind.PositionPct), 0),
			))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatProduct(p domain.ProductReport) string {
	var sb strings.Builder

	status := okStyle.Render(string(p.Status))
	if p.Status != domain.StatusOK {
		status = badStyle.Render(string(p.Status))
	}
	sb.WriteString(fmt.Sprintf("\n%s [%s] avg/day %s", titleStyle.Render(p.ProductID), status, p.AvgContribution.StringFixed(2)))
	if p.Price != nil {
		sb.WriteString(fmt.Sprintf(" | price %s (%s)", p.Price.UnitPrice.StringFixed(2), p.Price.Source))
	}
	sb.WriteString("\n")
	if p.Error != "" {
		sb.WriteString("  " + p.Error + "\n")
	}

	if last, ok := p.Timeframe.LatestIndicator(); ok {
		sb.WriteString(fmt.Sprintf("  close %s | band %s .. %s .. %s",
			last.Close.StringFixed(2), optional(last.BBLower, 2), optional(last.BBMiddle, 2), optional(last.BBUpper, 2)))
		if p.RSITrend != "" {
			sb.WriteString(" | " + p.RSITrend.Title())
		}
		sb.WriteString("\n")
	}

	for _, rec := range p.Recommendations {
		sb.WriteString(fmt.Sprintf("  %-12s target %10s  qty %8s  $%s\n",
			rec.Tier, rec.TargetValue.StringFixed(2), rec.Quantity.String(), rec.DollarValue.StringFixed(2)))
	}

	if p.Forecast != nil {
		sb.WriteString(fmt.Sprintf("  without orders: middle band in %dd, lower band in %dd\n",
			p.Forecast.DaysUntilMiddle, p.Forecast.DaysUntilLower))
	}
	if p.OrderIntervalDays != nil {
		sb.WriteString(fmt.Sprintf("  orders every %dd on average\n", *p.OrderIntervalDays))
	}
	return sb.String()
}

func formatOpportunities(ops []domain.Opportunity) string {
	var sb strings.Builder
	sb.WriteString("#  | Product          | Rank | Score | RSI   | Pos\n")
	sb.WriteString("---|------------------|------|-------|-------|------\n")
	for i, o := range ops {
		sb.WriteString(fmt.Sprintf("%-2d | %-16s | %4d | %5s | %5s | %5s\n",
			i+1, o.ProductID, o.ContributionRank, o.PriorityScore.StringFixed(3), o.RSI.StringFixed(1), o.PositionPct.Mul(hundred).StringFixed(0)+"%"))
	}
	return sb.String()
}

func formatOverview(ov *domain.AccountOverview) string {
	var sb strings.Builder
	if ov.MACDTrend != "" {
		sb.WriteString(fmt.Sprintf("MACD trend: %s\n", ov.MACDTrend.Title()))
	}
	if ov.VolumeTrend != "" {
		sb.WriteString(fmt.Sprintf("Volume trend: %s\n", strings.ToUpper(string(ov.VolumeTrend))))
	}
	sb.WriteString(fmt.Sprintf("Target spend: %s\n", tierRange(ov.Targets)))
	sb.WriteString(fmt.Sprintf("Trailing %d-day spend: $%s\n", ov.HorizonDays, ov.TrailingSpend.StringFixed(2)))

	for _, w := range ov.Weeks {
		dates := fmt.Sprintf("%s - %s", w.Start.Format("01/02"), w.End.Format("01/02"))
		if len(w.Products) == 0 {
			sb.WriteString(fmt.Sprintf("Week %-2d (%s): no orders due\n", w.Number, dates))
			continue
		}
		sb.WriteString(fmt.Sprintf("Week %-2d (%s): %s pos %s%% (%d products)\n",
			w.Number, dates, tierRange(w.Targets), optional(percent(w.Position), 0), len(w.Products)))
	}

	if ov.FocusWeek > 0 {
		w := ov.Weeks[ov.FocusWeek-1]
		focus := w.Products
		if len(focus) > 3 {
			focus = focus[:3]
		}
		sb.WriteString(okStyle.Render(fmt.Sprintf("Focus: week %d %s on %s", w.Number, tierRange(w.Targets), strings.Join(focus, ", "))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func tierRange(t domain.SpendingTargets) string {
	return fmt.Sprintf("[$%s < $%s < $%s]", t.Conservative.StringFixed(0), t.Balanced.StringFixed(0), t.Aggressive.StringFixed(0))
}

func percent(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return domain.Valid(d.Decimal.Mul(hundred))
}

func optional(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(places)
}

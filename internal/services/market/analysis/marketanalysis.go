// Package analysis derives indicator values from candle series.
package analysis

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/orderband/internal/domain"
	"github.com/vadiminshakov/orderband/pkg/indicators"
)

const volumeSMAPeriod = 14

// Params indicator engine settings.
type Params struct {
	BBWindow  int
	BBK       decimal.Decimal
	RSIWindow int
}

// ParamsFrom extracts engine settings from analysis parameters.
func ParamsFrom(p domain.AnalysisParams) Params {
	return Params{BBWindow: p.BBWindow, BBK: p.BBK, RSIWindow: p.RSIWindow}
}

// Validate checks the settings.
func (p Params) Validate() error {
	if p.BBWindow <= 1 {
		return errors.Errorf("bb_window must be greater than 1, got %d", p.BBWindow)
	}
	if !p.BBK.IsPositive() {
		return errors.Errorf("bb_k must be positive, got %s", p.BBK.String())
	}
	if p.RSIWindow <= 0 {
		return errors.Errorf("rsi_window must be positive, got %d", p.RSIWindow)
	}
	return nil
}

// Engine computes indicator points over candle closes.
type Engine struct {
	params Params
	logger *zap.Logger
}

// NewEngine creates a new indicator engine.
func NewEngine(params Params, logger *zap.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params, logger: logger}, nil
}

// Compute returns one indicator point per candle, aligned by index.
//
// Bollinger values need BBWindow closes ending at the candle and RSI needs RSIWindow
// changes; below that the fields are left unavailable rather than computed over a shorter
// window. The live candle's close takes part like any other close.
func (e *Engine) Compute(candles []domain.Candle) ([]domain.IndicatorPoint, error) {
	closes := domain.Closes(candles)

	bands, err := indicators.CalculateBollinger(closes, e.params.BBWindow, e.params.BBK)
	if err != nil {
		return nil, errors.Wrap(err, "calculate bollinger bands")
	}

	rsi, err := indicators.CalculateRSI(closes, e.params.RSIWindow)
	if err != nil {
		return nil, errors.Wrap(err, "calculate RSI")
	}

	rsiMA, err := indicators.CalculateSMANullable(rsi, e.params.RSIWindow)
	if err != nil {
		return nil, errors.Wrap(err, "calculate RSI moving average")
	}

	volumeSMA, err := indicators.CalculateSMA(domain.Volumes(candles), volumeSMAPeriod)
	if err != nil {
		return nil, errors.Wrap(err, "calculate volume SMA")
	}

	macd, signal, hist, err := indicators.CalculateMACD(closes)
	if err != nil {
		return nil, errors.Wrap(err, "calculate MACD")
	}

	points := make([]domain.IndicatorPoint, len(candles))
	for i, c := range candles {
		points[i] = domain.IndicatorPoint{
			Close:       c.Close,
			BBUpper:     bands.Upper[i],
			BBMiddle:    bands.Middle[i],
			BBLower:     bands.Lower[i],
			RSI:         rsi[i],
			PositionPct: PositionInBand(c.Close, bands.Lower[i], bands.Upper[i]),
			RSIMA:       rsiMA[i],
			VolumeSMA:   volumeSMA[i],
			MACD:        macd[i],
			MACDSignal:  signal[i],
			MACDHist:    hist[i],
		}
	}

	if e.logger != nil && len(candles) > 0 && len(candles) < e.params.BBWindow {
		e.logger.Debug("bollinger bands unavailable",
			zap.Int("candles", len(candles)),
			zap.Int("bb_window", e.params.BBWindow),
		)
	}

	return points, nil
}

// PositionInBand returns where value sits between the lower and upper band, clamped to [0, 1].
// It is unavailable when either band is missing or the band has no width.
func PositionInBand(value decimal.Decimal, lower, upper decimal.NullDecimal) decimal.NullDecimal {
	if !lower.Valid || !upper.Valid {
		return decimal.NullDecimal{}
	}
	width := upper.Decimal.Sub(lower.Decimal)
	if width.IsZero() {
		return decimal.NullDecimal{}
	}

	pos := value.Sub(lower.Decimal).Div(width)
	if pos.IsNegative() {
		pos = decimal.Zero
	}
	if pos.GreaterThan(decimal.NewFromInt(1)) {
		pos = decimal.NewFromInt(1)
	}
	return domain.Valid(pos)
}

// TrendFor reads an RSI value as openness to ordering.
func TrendFor(rsi decimal.NullDecimal) domain.RSITrend {
	if !rsi.Valid {
		return ""
	}
	switch {
	case rsi.Decimal.LessThan(decimal.NewFromInt(30)):
		return domain.RSITrendVeryOpen
	case rsi.Decimal.LessThan(decimal.NewFromInt(40)):
		return domain.RSITrendOpen
	case rsi.Decimal.LessThan(decimal.NewFromInt(45)):
		return domain.RSITrendNeutral
	case rsi.Decimal.LessThan(decimal.NewFromInt(50)):
		return domain.RSITrendResistant
	default:
		return domain.RSITrendStronglyResistant
	}
}

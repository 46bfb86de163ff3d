package scoring

import (
	"fmt"
	"math"

	"cryptoRotationBot/internal/domain"
	"cryptoRotationBot/internal/ports"
)

// Composite score weights. Fixed design constants, not configurable.
const (
	weightVolatility  = 0.5
	weightRSI         = 0.3
	weightVolumeTrend = 0.2
)

// Config holds parameters for the performance scorer.
type Config struct {
	RSIPeriod    int // trailing deltas averaged for RSI, default 14
	VolumeWindow int // samples per volume trend window, default 5
}

// Scorer turns an asset's OHLCV window into a single comparable score.
// It is a pure transform: no side effects, no mutable state beyond config.
type Scorer struct {
	cfg Config
}

// New creates a Scorer, applying defaults for zero-valued config.
func New(cfg Config) (*Scorer, error) {
	if cfg.RSIPeriod == 0 {
		cfg.RSIPeriod = 14
	}
	if cfg.VolumeWindow == 0 {
		cfg.VolumeWindow = 5
	}
	if cfg.RSIPeriod < 0 || cfg.VolumeWindow < 0 {
		return nil, fmt.Errorf("scorer periods must be positive")
	}
	return &Scorer{cfg: cfg}, nil
}

// MinSamples returns the minimum window length needed to score an asset:
// one more than the RSI period for the delta lookback, and two full volume
// windows for the volume trend.
func (s *Scorer) MinSamples() int {
	n := s.cfg.RSIPeriod + 1
	if v := 2 * s.cfg.VolumeWindow; v > n {
		n = v
	}
	return n
}

// Score computes the performance record for one asset over its price window,
// oldest sample first. It fails with ports.ErrInsufficientData when the
// window is too short and with ports.ErrDataUnavailable when the inputs
// produce non-finite metrics (NaN prices, zero volume windows); the caller
// skips the asset for the cycle rather than aborting.
func (s *Scorer) Score(asset string, points []*domain.PricePoint) (*domain.PerformanceRecord, error) {
	if len(points) < s.MinSamples() {
		return nil, fmt.Errorf("%w: %s has %d samples, need %d",
			ports.ErrInsufficientData, asset, len(points), s.MinSamples())
	}

	closes := make([]float64, len(points))
	volumes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
		volumes[i] = p.Volume
	}

	first, last := closes[0], closes[len(closes)-1]
	changePct := (last - first) / first * 100

	volatility := sampleStdDev(periodReturns(closes)) * 100

	rsi := relativeStrength(closes, s.cfg.RSIPeriod)

	volumeTrend, err := volumeChange(volumes, s.cfg.VolumeWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ports.ErrDataUnavailable, asset, err)
	}

	score := changePct - weightVolatility*volatility + weightRSI*(rsi-50) + weightVolumeTrend*volumeTrend

	for _, v := range []float64{changePct, volatility, rsi, volumeTrend, score} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s produced non-finite metrics", ports.ErrDataUnavailable, asset)
		}
	}

	return &domain.PerformanceRecord{
		Asset:       asset,
		Price:       last,
		ChangePct:   changePct,
		Volatility:  volatility,
		RSI:         rsi,
		VolumeTrend: volumeTrend,
		Score:       score,
	}, nil
}

// periodReturns computes close-over-close fractional returns.
func periodReturns(closes []float64) []float64 {
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return returns
}

// sampleStdDev computes the sample standard deviation (n-1 denominator).
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// relativeStrength computes RSI from the trailing `period` close deltas:
// gain and loss are plain rolling means of the positive and absolute negative
// deltas. A window with no losses is defined as neutral 50 rather than
// propagating a division artifact.
func relativeStrength(closes []float64, period int) float64 {
	deltas := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		deltas = append(deltas, closes[i]-closes[i-1])
	}

	window := deltas[len(deltas)-period:]
	var gain, loss float64
	for _, d := range window {
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	if loss == 0 {
		return 50
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

// volumeChange compares the mean of the last `window` volumes against the
// mean of the preceding `window`. A zero-mean window leaves the trend undefined.
func volumeChange(volumes []float64, window int) (float64, error) {
	n := len(volumes)
	recent := mean(volumes[n-window:])
	prior := mean(volumes[n-2*window : n-window])
	if prior == 0 || recent == 0 {
		return 0, fmt.Errorf("volume window has zero mean")
	}
	return (recent/prior - 1) * 100, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

package strategy

import (
	"testing"
	"time"

	"trading-core/pkg/exchanges/common"
)

func series(closes []float64, volumes []float64) []common.Candle {
	out := make([]common.Candle, len(closes))
	base := time.Now()
	for i, c := range closes {
		v := 100.0
		if volumes != nil {
			v = volumes[i]
		}
		out[i] = common.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: v,
		}
	}
	return out
}

func flatRamp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestAllStrategiesHoldOnInsufficientData(t *testing.T) {
	candles := series([]float64{1, 2, 3}, nil)
	for _, s := range All() {
		d := s.Run(candles)
		if d.Signal != 0 || d.Confidence != 0 {
			t.Errorf("%s: expected HOLD with zero confidence on short series, got %+v", s.Name, d)
		}
	}
}

func TestRSIBuysOnSteadyDecline(t *testing.T) {
	closes := flatRamp(30, 100, -1)
	d := RSI(series(closes, nil))
	if d.Signal != 1 {
		t.Errorf("expected BUY on a steady decline (oversold RSI), got %+v", d)
	}
}

func TestRSISellsOnSteadyRise(t *testing.T) {
	closes := flatRamp(30, 50, 1)
	d := RSI(series(closes, nil))
	if d.Signal != -1 {
		t.Errorf("expected SELL on a steady rise (overbought RSI), got %+v", d)
	}
}

func TestTrendBuysOnUptrend(t *testing.T) {
	closes := flatRamp(40, 50, 1)
	d := Trend(series(closes, nil))
	if d.Signal != 1 {
		t.Errorf("expected BUY on a clean uptrend, got %+v", d)
	}
}

func TestTrendSellsOnDowntrend(t *testing.T) {
	closes := flatRamp(40, 200, -1)
	d := Trend(series(closes, nil))
	if d.Signal != -1 {
		t.Errorf("expected SELL on a clean downtrend, got %+v", d)
	}
}

func TestVolumeHoldsWithoutSpike(t *testing.T) {
	closes := flatRamp(25, 100, 0.1)
	d := Volume(series(closes, nil))
	if d.Signal != 0 {
		t.Errorf("expected HOLD with flat volume, got %+v", d)
	}
}

func TestVolumeBuysOnSpikeWithRisingClose(t *testing.T) {
	closes := flatRamp(25, 100, 0.1)
	vols := make([]float64, 25)
	for i := range vols {
		vols[i] = 100
	}
	vols[len(vols)-1] = 1000 // well above the 20-bar mean
	d := Volume(series(closes, vols))
	if d.Signal != 1 {
		t.Errorf("expected BUY on a volume spike with a rising close, got %+v", d)
	}
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	closes := flatRamp(60, 100, 0.7)
	for _, s := range All() {
		d := s.Run(series(closes, nil))
		if d.Confidence < 0 || d.Confidence > 1 {
			t.Errorf("%s: confidence %v out of [0,1]", s.Name, d.Confidence)
		}
	}
}

package indicators

const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// MACD is EMA12(close) - EMA26(close); signal is EMA9 of the MACD line;
// histogram is macd - signal.
func MACD(closes []float64) (macd, signal, histogram float64, ok bool) {
	fast, okFast := emaSeries(closes, macdFastPeriod)
	slow, okSlow := emaSeries(closes, macdSlowPeriod)
	if !okFast || !okSlow {
		return 0, 0, 0, false
	}

	offset := len(fast) - len(slow)
	macdLine := make([]float64, len(slow))
	for i := range slow {
		macdLine[i] = fast[i+offset] - slow[i]
	}

	signalSeries, okSignal := emaSeries(macdLine, macdSignalPeriod)
	if !okSignal {
		return 0, 0, 0, false
	}

	macd = macdLine[len(macdLine)-1]
	signal = signalSeries[len(signalSeries)-1]
	return macd, signal, macd - signal, true
}

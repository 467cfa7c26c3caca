package market

import "time"

// Bar represents one day of OHLC (Open, High, Low, Close) price data.
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	time.Time
	Volume float64
}

// Series is a time-ordered sequence of daily bars, oldest first.
type Series []Bar

// LastClose returns the most recent closing price, or false when the
// series is empty.
func (s Series) LastClose() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1].Close, true
}

// PrevClose returns the closing price before the latest one. When only a
// single bar is available (holidays, recently listed tickers) it falls back
// to the last close so percent change reads as zero.
func (s Series) PrevClose() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	if len(s) >= 2 {
		return s[len(s)-2].Close, true
	}
	return s[len(s)-1].Close, true
}

// LastVolume returns the most recent bar's volume, or zero for an empty
// series.
func (s Series) LastVolume() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Volume
}

// PercentChange returns the percent move of the last close against the
// previous close.
func (s Series) PercentChange() float64 {
	last, ok := s.LastClose()
	if !ok {
		return 0
	}
	prev, _ := s.PrevClose()
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev * 100
}

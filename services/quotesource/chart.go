package quotesource

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"stock_ingestion_backend/models"
)

// chartResponse mirrors the chart endpoint payload. Indicator arrays are
// parallel to Timestamp and may contain nulls for non-trading periods.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Currency             string     `json:"currency"`
	Symbol               string     `json:"symbol"`
	RegularMarketPrice   null.Float `json:"regularMarketPrice"`
	RegularMarketDayHigh null.Float `json:"regularMarketDayHigh"`
	RegularMarketDayLow  null.Float `json:"regularMarketDayLow"`
	RegularMarketVolume  null.Int   `json:"regularMarketVolume"`
	PreviousClose        null.Float `json:"previousClose"`
	ChartPreviousClose   null.Float `json:"chartPreviousClose"`
	RegularMarketTime    int64      `json:"regularMarketTime"`
}

type chartQuote struct {
	Open   []null.Float `json:"open"`
	High   []null.Float `json:"high"`
	Low    []null.Float `json:"low"`
	Close  []null.Float `json:"close"`
	Volume []null.Int   `json:"volume"`
}

// snapshot converts the metadata block into a QuoteSnapshot.
// ok is false when the block carries no market price.
func (r *chartResult) snapshot(symbol string, now time.Time) (*models.QuoteSnapshot, bool) {
	m := r.Meta
	if !m.RegularMarketPrice.Valid {
		return nil, false
	}

	ts := now.UTC()
	if m.RegularMarketTime > 0 {
		ts = time.Unix(m.RegularMarketTime, 0).UTC()
	}

	prevClose := m.PreviousClose
	if !prevClose.Valid {
		prevClose = m.ChartPreviousClose
	}

	if m.Symbol != "" {
		symbol = m.Symbol
	}

	return &models.QuoteSnapshot{
		Symbol:        symbol,
		Price:         m.RegularMarketPrice.Float64,
		DayHigh:       m.RegularMarketDayHigh.ValueOrZero(),
		DayLow:        m.RegularMarketDayLow.ValueOrZero(),
		Volume:        m.RegularMarketVolume.ValueOrZero(),
		PreviousClose: prevClose.ValueOrZero(),
		Timestamp:     ts,
		Currency:      m.Currency,
	}, true
}

// series zips the timestamp and indicator arrays positionally. Entries with a
// null open are dropped. The result is ordered by ascending timestamp.
func (r *chartResult) series() []models.OHLCVPoint {
	var q chartQuote
	if len(r.Indicators.Quote) > 0 {
		q = r.Indicators.Quote[0]
	}

	points := make([]models.OHLCVPoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		open := floatAt(q.Open, i)
		if !open.Valid {
			continue
		}
		points = append(points, models.OHLCVPoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      open.Float64,
			High:      floatAt(q.High, i).ValueOrZero(),
			Low:       floatAt(q.Low, i).ValueOrZero(),
			Close:     floatAt(q.Close, i).ValueOrZero(),
			Volume:    intAt(q.Volume, i).ValueOrZero(),
		})
	}

	sort.SliceStable(points, func(a, b int) bool {
		return points[a].Timestamp.Before(points[b].Timestamp)
	})
	return points
}

func floatAt(values []null.Float, i int) null.Float {
	if i < len(values) {
		return values[i]
	}
	return null.Float{}
}

func intAt(values []null.Int, i int) null.Int {
	if i < len(values) {
		return values[i]
	}
	return null.Int{}
}

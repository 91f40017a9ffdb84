package models

import "time"

// QuoteSnapshot is a single current-price observation for a symbol.
// It carries one price point, not a full OHLC bar.
type QuoteSnapshot struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	DayHigh       float64   `json:"day_high"`
	DayLow        float64   `json:"day_low"`
	Volume        int64     `json:"volume"`
	PreviousClose float64   `json:"previous_close"`
	Timestamp     time.Time `json:"timestamp"`
	Currency      string    `json:"currency"`
}

// OHLCVPoint is one normalized bar of a historical series
type OHLCVPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

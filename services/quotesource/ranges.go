package quotesource

import "strings"

// DefaultRangeKey is used when a caller asks for a range the table does not know
const DefaultRangeKey = "1mo"

// RangeSpec is the (span, sampling interval) pair sent to the chart endpoint
type RangeSpec struct {
	Key      string
	Range    string
	Interval string
}

var rangeTable = map[string]RangeSpec{
	"1d":  {Key: "1d", Range: "1d", Interval: "15m"},
	"5d":  {Key: "5d", Range: "5d", Interval: "1h"},
	"1mo": {Key: "1mo", Range: "1mo", Interval: "1d"},
	"3mo": {Key: "3mo", Range: "3mo", Interval: "1d"},
	"6mo": {Key: "6mo", Range: "6mo", Interval: "1d"},
	"1y":  {Key: "1y", Range: "1y", Interval: "1d"},
	"2y":  {Key: "2y", Range: "2y", Interval: "1wk"},
	"5y":  {Key: "5y", Range: "5y", Interval: "1wk"},
	"10y": {Key: "10y", Range: "10y", Interval: "1mo"},
	"ytd": {Key: "ytd", Range: "ytd", Interval: "1d"},
	"max": {Key: "max", Range: "max", Interval: "1mo"},
}

// ResolveRange maps a range key to its span and interval.
// Unknown keys fall back to DefaultRangeKey.
func ResolveRange(key string) RangeSpec {
	if spec, ok := rangeTable[strings.ToLower(strings.TrimSpace(key))]; ok {
		return spec
	}
	return rangeTable[DefaultRangeKey]
}

// IsKnownRange reports whether key has its own entry in the range table
func IsKnownRange(key string) bool {
	_, ok := rangeTable[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

package services

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultUniverse is the curated symbol list used by the bulk loader when no
// universe file is given.
var DefaultUniverse = []string{
	// Technology
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "ORCL", "CRM", "ADBE",
	"INTC", "AMD", "CSCO", "IBM", "QCOM",
	// Financials
	"JPM", "BAC", "WFC", "GS", "MS", "V", "MA", "AXP",
	// Healthcare
	"JNJ", "PFE", "UNH", "MRK", "ABBV", "LLY",
	// Consumer
	"WMT", "PG", "KO", "PEP", "MCD", "NKE", "DIS", "HD", "COST",
	// Energy and industrials
	"XOM", "CVX", "BA", "CAT", "GE", "HON",
	// ETFs
	"SPY", "QQQ", "DIA", "IWM",
}

// Universe is the YAML layout of a symbol universe file:
//
//	symbols: [AAPL, MSFT]
//	groups:
//	  banks: [JPM, BAC]
type Universe struct {
	Symbols []string            `yaml:"symbols"`
	Groups  map[string][]string `yaml:"groups"`
}

// All returns the top-level symbols followed by each group's symbols in
// group-name order, normalized and deduplicated.
func (u Universe) All() []string {
	all := append([]string{}, u.Symbols...)

	names := make([]string, 0, len(u.Groups))
	for name := range u.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		all = append(all, u.Groups[name]...)
	}

	return UniqueSymbols(all)
}

// LoadUniverse reads a YAML universe file and expands ${VAR} references
func LoadUniverse(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}

	var u Universe
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &u); err != nil {
		return nil, fmt.Errorf("parse universe yaml: %w", err)
	}

	symbols := u.All()
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe file %s lists no symbols", path)
	}
	return symbols, nil
}

// UniqueSymbols normalizes symbols, dropping blanks and repeats while keeping
// first-seen order.
func UniqueSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

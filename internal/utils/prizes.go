package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PrizeTable maps leaderboard ranks to prize labels, loaded from prizes.yaml.
// Ranks beyond the table get no prize line.
type PrizeTable struct {
	Prizes []string `yaml:"prizes"`
}

// defaultPrizes is the stock monthly payout ladder, used when no prizes.yaml
// is present.
var defaultPrizes = []string{
	"350", "250", "200", "150", "100", "50", "50", "25", "25", "25",
}

func DefaultPrizeTable() PrizeTable {
	prizes := make([]string, len(defaultPrizes))
	copy(prizes, defaultPrizes)
	return PrizeTable{Prizes: prizes}
}

// LoadPrizeTable reads the yaml prize ladder, falling back to the default
// table when the file does not exist.
func LoadPrizeTable(path string) (PrizeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPrizeTable(), nil
		}
		return PrizeTable{}, fmt.Errorf("read prize table: %w", err)
	}

	var table PrizeTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return PrizeTable{}, fmt.Errorf("parse prize table: %w", err)
	}
	if len(table.Prizes) == 0 {
		return DefaultPrizeTable(), nil
	}
	return table, nil
}

// ForRank returns the prize label for a 1-based rank, empty when the rank is
// off the table.
func (t PrizeTable) ForRank(rank int) string {
	if rank < 1 || rank > len(t.Prizes) {
		return ""
	}
	return t.Prizes[rank-1]
}

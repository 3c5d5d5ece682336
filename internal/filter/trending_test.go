package filter

import (
	"testing"

	"solana-token-radar/internal/domain"
)

func TestTrendingScore(t *testing.T) {
	tests := []struct {
		name string
		rec  domain.CandidateRecord
		want float64
	}{
		{"empty", domain.CandidateRecord{}, 0},
		{
			name: "steady volume",
			rec:  domain.CandidateRecord{Volume: domain.Windows{M5: 100, H1: 1_200}},
			want: 10,
		},
		{
			name: "new volume without history",
			rec:  domain.CandidateRecord{Volume: domain.Windows{M5: 10}},
			want: 30,
		},
		{
			name: "everything maxed",
			rec: domain.CandidateRecord{
				Volume:      domain.Windows{M5: 10_000, H1: 12_000},
				PriceChange: domain.Windows{H1: 250},
				Txns:        domain.TxnWindows{M5: domain.TxnCount{Buys: 80, Sells: 40}},
				Liquidity:   domain.Liquidity{USD: 500_000},
			},
			want: 100,
		},
		{
			name: "falling price ignored",
			rec: domain.CandidateRecord{
				PriceChange: domain.Windows{H1: -40},
				Liquidity:   domain.Liquidity{USD: 60_000},
			},
			want: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrendingScore(&tt.rec); got != tt.want {
				t.Errorf("TrendingScore = %v, want %v", got, tt.want)
			}
		})
	}
}

package domain

import (
	"errors"
	"math"
	"testing"
)

func TestFeeNetPartition(t *testing.T) {
	amounts := []uint64{0, 1, 999, 10_000, 1_000_000_000, 5_000_000_000, math.MaxUint64 / FeeDenominator}
	for _, amount := range amounts {
		for feeBps := uint64(0); feeBps <= FeeDenominator; feeBps += 73 {
			fee, err := Fee(amount, feeBps)
			if err != nil {
				t.Fatalf("Fee(%d, %d): %v", amount, feeBps, err)
			}
			net, err := Net(amount, feeBps)
			if err != nil {
				t.Fatalf("Net(%d, %d): %v", amount, feeBps, err)
			}
			if fee+net != amount {
				t.Errorf("Fee+Net = %d+%d != %d at %d bps", fee, net, amount, feeBps)
			}
			if fee > amount {
				t.Errorf("Fee(%d, %d) = %d exceeds amount", amount, feeBps, fee)
			}
		}
	}
}

func TestFeeKnownValues(t *testing.T) {
	tests := []struct {
		amount, feeBps, want uint64
	}{
		{1_000_000_000, 250, 25_000_000},
		{5_000_000_000, 250, 125_000_000},
		{1_000_000_000, 0, 0},
		{1_000_000_000, 10_000, 1_000_000_000},
		{3, 5000, 1}, // floor division
	}
	for _, tt := range tests {
		got, err := Fee(tt.amount, tt.feeBps)
		if err != nil {
			t.Fatalf("Fee(%d, %d): %v", tt.amount, tt.feeBps, err)
		}
		if got != tt.want {
			t.Errorf("Fee(%d, %d) = %d, want %d", tt.amount, tt.feeBps, got, tt.want)
		}
	}
}

func TestFeeOverflow(t *testing.T) {
	if _, err := Fee(math.MaxUint64, 2); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if _, _, err := SplitFee(math.MaxUint64, MaxFeeBps); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow from SplitFee, got %v", err)
	}
}

func TestSplitFee(t *testing.T) {
	fee, net, err := SplitFee(5_000_000_000, 250)
	if err != nil {
		t.Fatalf("SplitFee: %v", err)
	}
	if fee != 125_000_000 || net != 4_875_000_000 {
		t.Errorf("SplitFee = (%d, %d), want (125000000, 4875000000)", fee, net)
	}
}

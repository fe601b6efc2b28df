package domain

import "math/bits"

// FeeDenominator is the basis-point scale: 10_000 bps = 100%.
const FeeDenominator = 10_000

// Fee computes the platform fee on amount at feeBps basis points, rounding
// down. The product is computed at 128-bit width; a product that does not fit
// back into 64 bits is rejected with ErrOverflow rather than wrapped.
func Fee(amount, feeBps uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, feeBps)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo / FeeDenominator, nil
}

// Net computes the amount remaining after the platform fee is deducted.
// Fee(a, bps) + Net(a, bps) == a for all feeBps in [0, FeeDenominator].
func Net(amount, feeBps uint64) (uint64, error) {
	fee, err := Fee(amount, feeBps)
	if err != nil {
		return 0, err
	}
	return amount - fee, nil
}

// SplitFee returns both halves of the fee split in one call.
func SplitFee(amount, feeBps uint64) (fee, net uint64, err error) {
	fee, err = Fee(amount, feeBps)
	if err != nil {
		return 0, 0, err
	}
	return fee, amount - fee, nil
}

package detect

import (
	"math"
	"math/big"
)

// meanStdev returns the mean and sample standard deviation of vals.
// The variance divisor is max(n-1, 1), so a single observation yields 0.
func meanStdev(vals []float64) (mean, stdev float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	div := float64(len(vals) - 1)
	if div < 1 {
		div = 1
	}
	return mean, math.Sqrt(sq / div)
}

// zScore is 0 when the deviation is zero or not finite, so constant series
// never flag.
func zScore(x, mean, stdev float64) float64 {
	if stdev == 0 || math.IsInf(stdev, 0) || math.IsNaN(stdev) {
		return 0
	}
	return (x - mean) / stdev
}

// confFromZ maps |z| onto [0,1] with a cap at 6 and a floor of 0.1, rounded
// to two decimals.
func confFromZ(z float64) float64 {
	v := math.Min(math.Abs(z), 6) / 6
	return math.Max(0.1, round2(v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type bigVal = big.Float

func newBigVal(n *big.Int) *bigVal {
	return new(big.Float).SetInt(n)
}

// percentile computes the q-th percentile of ascending-sorted vals using
// linear interpolation between closest ranks (percentile_cont semantics).
func percentile(vals []*bigVal, q float64) *bigVal {
	n := len(vals)
	if n == 0 {
		return new(big.Float)
	}
	if n == 1 {
		return new(big.Float).Copy(vals[0])
	}
	idx := q * float64(n-1)
	lo := int(math.Floor(idx))
	frac := idx - float64(lo)
	if lo >= n-1 {
		return new(big.Float).Copy(vals[n-1])
	}
	if frac == 0 {
		return new(big.Float).Copy(vals[lo])
	}
	delta := new(big.Float).Sub(vals[lo+1], vals[lo])
	delta.Mul(delta, big.NewFloat(frac))
	return new(big.Float).Add(vals[lo], delta)
}

func mulBig(v *bigVal, factor int64) *bigVal {
	return new(big.Float).Mul(v, new(big.Float).SetInt64(factor))
}

func maxBig(a, b *bigVal) *bigVal {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// ceilBig rounds v up to the nearest integer.
func ceilBig(v *bigVal) *big.Int {
	n, acc := v.Int(nil)
	if acc == big.Below {
		n.Add(n, big.NewInt(1))
	}
	return n
}

// log10Ratio computes log10(x/thr) without leaving arbitrary precision until
// the final (bounded) quotient.
func log10Ratio(x, thr *big.Int) float64 {
	if thr.Sign() <= 0 {
		return 0
	}
	ratio, _ := new(big.Float).Quo(new(big.Float).SetInt(x), new(big.Float).SetInt(thr)).Float64()
	if ratio <= 0 {
		return 0
	}
	return math.Log10(ratio) // +Inf ratio saturates the confidence clamp
}

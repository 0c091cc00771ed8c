package analytics

import (
	"math"
	"slices"
)

// Summary describes the distribution of transaction amounts.
type Summary struct {
	Count  int
	Sum    float64
	Mean   float64
	StdDev float64 // population standard deviation
	Min    float64
	Max    float64
	Median float64
	// Mode is the amount with the longest run of exactly equal values; ties
	// go to the smallest such amount.
	Mode      float64
	ModeCount int

	FraudCount   int
	FraudPercent float64
	// FraudLabeled is false when no record carried a fraud flag, in which
	// case FraudCount and FraudPercent are meaningless.
	FraudLabeled bool
}

// Summarize computes a Summary over every amount in src. It reports false
// when src is empty.
func Summarize(src Source) (Summary, bool) {
	var (
		s       = Summary{Min: math.Inf(1), Max: math.Inf(-1)}
		amounts []float64
	)
	for tx := range src.All() {
		amounts = append(amounts, tx.Amount)
		s.Sum += tx.Amount
		s.Min = min(s.Min, tx.Amount)
		s.Max = max(s.Max, tx.Amount)
		if tx.FraudLabeled {
			s.FraudLabeled = true
		}
		if tx.IsFraud {
			s.FraudCount++
		}
	}

	s.Count = len(amounts)
	if s.Count == 0 {
		return Summary{}, false
	}
	n := float64(s.Count)
	s.Mean = s.Sum / n

	var sq float64
	for _, a := range amounts {
		d := a - s.Mean
		sq += d * d
	}
	s.StdDev = math.Sqrt(sq / n)

	slices.Sort(amounts)
	mid := s.Count / 2
	if s.Count%2 == 0 {
		s.Median = (amounts[mid-1] + amounts[mid]) / 2
	} else {
		s.Median = amounts[mid]
	}
	s.Mode, s.ModeCount = mode(amounts)

	s.FraudPercent = 100 * float64(s.FraudCount) / n
	return s, true
}

// mode scans a sorted, non-empty slice for the longest run of equal values.
func mode(sorted []float64) (float64, int) {
	best, bestRun := sorted[0], 1
	run := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			run++
			if run > bestRun {
				best, bestRun = sorted[i], run
			}
			continue
		}
		run = 1
	}
	return best, bestRun
}

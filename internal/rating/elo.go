package rating

import "math"

const DefaultKFactor = 32

const (
	Loss = 0.0
	Draw = 0.5
	Win  = 1.0
)

// ExpectedScore is the chance that a player rated a scores against a player rated b.
func ExpectedScore(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// Delta is the rating change of a player rated a after scoring result against b.
// Halves round to even, so the two sides of a game do not always sum to zero.
func Delta(a, b int, result float64, k int) int {
	if k <= 0 {
		k = DefaultKFactor
	}

	return int(math.RoundToEven(float64(k) * (result - ExpectedScore(a, b))))
}

// Deltas returns the changes for both sides of a game, scoreA being the result of a.
func Deltas(a, b int, scoreA float64, k int) (int, int) {
	return Delta(a, b, scoreA, k), Delta(b, a, 1-scoreA, k)
}

package stockfolio

import "fmt"

// Percent is a percentage value (21.5 means 21.5%).
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" {
		return "-"
	}
	return res
}

// ratio returns a Percent from a numerator and denominator, 0 when the
// denominator is not positive.
func ratio(num, den float64) Percent {
	if den <= 0 {
		return 0
	}
	return Percent(100 * num / den)
}

package scoring

// Band is a coarse confidence level shown to the user.
type Band int

const (
	BandLow Band = iota
	BandMedium
	BandHigh
)

// Band boundaries.
const (
	MediumFloor = 0.6
	HighFloor   = 0.8
)

// BandFor classifies score: below 0.6 is low, below 0.8 medium, otherwise high.
func BandFor(score float64) Band {
	switch {
	case score < MediumFloor:
		return BandLow
	case score < HighFloor:
		return BandMedium
	default:
		return BandHigh
	}
}

func (b Band) String() string {
	switch b {
	case BandLow:
		return "LOW"
	case BandMedium:
		return "MEDIUM"
	case BandHigh:
		return "HIGH"
	}
	return "UNKNOWN"
}

// Advice is the short hint printed next to the band.
func (b Band) Advice() string {
	switch b {
	case BandLow:
		return "Review carefully"
	case BandMedium:
		return "Double-check advised"
	case BandHigh:
		return "Looks great!"
	}
	return ""
}

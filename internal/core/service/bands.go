package service

// Band caps the charge current while the input stays below Bound.
type Band struct {
	Bound float64
	Limit float64
}

// LookupBand returns the limit of the first band whose bound exceeds x.
// bands must be sorted by ascending bound. fallback applies when x is above
// every bound.
func LookupBand(bands []Band, x float64, fallback float64) float64 {
	for _, b := range bands {
		if x < b.Bound {
			return b.Limit
		}
	}
	return fallback
}

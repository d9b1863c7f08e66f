package util

// StarBreakdown is a 0-5 rating split into whole stars for display.
type StarBreakdown struct {
	Full  int  `json:"full"`
	Half  bool `json:"half"`
	Empty int  `json:"empty"`
}

// StarsForRating converts a 0-5 float rating into full/half/empty star
// counts. The half star appears when the fractional part is >= 0.5.
func StarsForRating(rating float64) StarBreakdown {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}

	full := int(rating)
	half := rating-float64(full) >= 0.5

	empty := 5 - full
	if half {
		empty--
	}

	return StarBreakdown{Full: full, Half: half, Empty: empty}
}

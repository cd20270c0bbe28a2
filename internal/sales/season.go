package sales

// Season is the southern-hemisphere season code used by the business API.
type Season string

const (
	SeasonSummer  Season = "VERANO"
	SeasonAutumn  Season = "OTONO"
	SeasonWinter  Season = "INVIERNO"
	SeasonSpring  Season = "PRIMAVERA"
	SeasonUnknown Season = "DESCONOCIDO"
)

// SeasonOf maps a calendar month to its season. Months outside 1-12 fall
// through to spring, matching the upstream classification.
func SeasonOf(month int) Season {
	switch month {
	case 12, 1, 2:
		return SeasonSummer
	case 3, 4, 5:
		return SeasonAutumn
	case 6, 7, 8:
		return SeasonWinter
	default:
		return SeasonSpring
	}
}

// English returns the English season name.
func (s Season) English() string {
	switch s {
	case SeasonSummer:
		return "SUMMER"
	case SeasonAutumn:
		return "AUTUMN"
	case SeasonWinter:
		return "WINTER"
	case SeasonSpring:
		return "SPRING"
	default:
		return "UNKNOWN"
	}
}

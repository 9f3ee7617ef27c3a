package inventory

// Kind identifies which catalogue domain a capacity pool belongs to.
// It drives the ticket identifier prefix and the typed metadata a
// booking carries.
type Kind string

const (
	KindEvent     Kind = "event"
	KindScreening Kind = "screening"
	KindTour      Kind = "tour"
	KindTrip      Kind = "trip"
)

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsValid() bool {
	switch k {
	case KindEvent, KindScreening, KindTour, KindTrip:
		return true
	default:
		return false
	}
}

// TicketPrefix is the domain prefix of ticket identifiers minted for
// bookings against units of this kind.
func (k Kind) TicketPrefix() string {
	switch k {
	case KindEvent:
		return "EVT"
	case KindScreening:
		return "SCR"
	case KindTour:
		return "TUR"
	case KindTrip:
		return "TRP"
	default:
		return "TKT"
	}
}

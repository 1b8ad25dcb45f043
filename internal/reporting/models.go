package reporting

// DateRange is an inclusive range of canonical YYYY-MM-DD dates in the shop's
// timezone.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// QuotesSummary aggregates the quotes created in a range.
type QuotesSummary struct {
	Range DateRange `json:"range"`

	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Approved     int `json:"approved"`
	Rejected     int `json:"rejected"`
	ManualClosed int `json:"manual_closed"`

	// AutoPriced counts quotes the estimator priced; the rest went to review.
	AutoPriced int `json:"auto_priced"`
	NeedReview int `json:"need_review"`
	HeldSlots  int `json:"held_slots"`

	EstimatedTotal float64 `json:"estimated_total"`
	// ClosedTotal sums final values, falling back to the estimate.
	ClosedTotal    float64 `json:"closed_total"`
	ConversionRate float64 `json:"conversion_rate"`
}

// AgendaOccupancy aggregates the agenda slots in a range.
type AgendaOccupancy struct {
	Range DateRange `json:"range"`

	Slots         int     `json:"slots"`
	BlockedSlots  int     `json:"blocked_slots"`
	Capacity      int     `json:"capacity"`
	Reserved      int     `json:"reserved"`
	FullWeekSlots int     `json:"full_week_slots"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

// Summary is what the owner panel shows for a period.
type Summary struct {
	Quotes QuotesSummary   `json:"quotes"`
	Agenda AgendaOccupancy `json:"agenda"`
}

package refund

const (
	SecondsPerDay = 86400

	// DefaultGraceDays is how many started days still earn a full refund
	DefaultGraceDays = 3
)

// Breakdown is the outcome of a prorated refund computation
type Breakdown struct {
	DaysTotal  int64
	DaysUsed   int64
	DaysUnused int64
	Amount     int64
	FullRefund bool
}

// ShouldRefund reports whether a refund call should be made at all
func (b Breakdown) ShouldRefund() bool {
	return b.Amount > 0
}

// Calculate computes the refund for an invoice of amountPaid covering [periodStart, periodEnd),
// cancelled at now. All timestamps are unix seconds.
func Calculate(periodStart, periodEnd, now, amountPaid int64) Breakdown {
	return CalculateWithGrace(periodStart, periodEnd, now, amountPaid, DefaultGraceDays)
}

// CalculateWithGrace is Calculate with a configurable full refund window
func CalculateWithGrace(periodStart, periodEnd, now, amountPaid, graceDays int64) Breakdown {
	b := Breakdown{
		DaysTotal: ceilDiv(periodEnd-periodStart, SecondsPerDay),
		DaysUsed:  ceilDiv(now-periodStart, SecondsPerDay),
	}
	b.DaysUnused = b.DaysTotal - b.DaysUsed

	switch {
	case b.DaysUsed <= graceDays:
		b.Amount = amountPaid
		b.FullRefund = true
	case b.DaysTotal <= 0:
		b.Amount = 0
	default:
		b.Amount = floorDiv(amountPaid*b.DaysUnused, b.DaysTotal)
	}

	if b.Amount < 0 {
		b.Amount = 0
	}
	return b
}

// ceilDiv rounds toward positive infinity for a positive divisor
func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b > 0 {
		q++
	}
	return q
}

// floorDiv rounds toward negative infinity for a positive divisor
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

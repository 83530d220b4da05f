package fiscal

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidDateRange is returned when the requested window has its start
// after its end. It is rejected before any matching work happens.
var ErrInvalidDateRange = errors.New("start date is after end date")

// InsufficientLotsError reports a sale whose quantity exceeds the open
// purchase lots for its asset at the time of sale. This points at a
// data-integrity problem upstream (missing buys), so it is never retried.
type InsufficientLotsError struct {
	Symbol    string
	SaleDate  time.Time
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient purchase lots for %s: sale of %s on %s exceeds open lots (%s available, short %s)",
		e.Symbol, e.Requested, e.SaleDate.Format("2006-01-02"), e.Available, e.Shortfall())
}

// Shortfall is the unmatched part of the sale quantity.
func (e *InsufficientLotsError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

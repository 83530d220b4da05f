// Package fiscal computes realized gains and losses by matching sales
// against purchase lots in first-in-first-out order.
package fiscal

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

// lot is an open purchase awaiting consumption by later sales. It exists
// only for the duration of one matching pass.
type lot struct {
	acquisitionDate time.Time
	remaining       decimal.Decimal
	unitPrice       decimal.Decimal
}

// Matcher matches sales against purchase lots in FIFO order. It holds no
// state between calls; a single instance is safe for concurrent use.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Compute produces the realized gain/loss ledger for the given transactions,
// filtered to sales inside the inclusive [startDate, endDate] window. A nil
// bound means unbounded on that side.
//
// The slice must contain the complete buy/sell history of every asset it
// touches: matching over a partial history pairs sales with the wrong lots
// even if the output window is narrow. Assets never interact; an oversold
// asset fails with an InsufficientLotsError while the others still compute,
// and all such errors are returned together.
func (m *Matcher) Compute(transactions []models.Transaction, startDate, endDate *time.Time) (*models.FiscalResult, error) {
	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		return nil, ErrInvalidDateRange
	}

	grouped := groupBySymbol(transactions)
	symbols := make([]string, 0, len(grouped))
	for symbol := range grouped {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var items []models.FiscalResultItem
	var matchErr error
	for _, symbol := range symbols {
		rows, err := matchSymbol(symbol, grouped[symbol])
		if err != nil {
			matchErr = multierror.Append(matchErr, err)
			continue
		}
		items = append(items, rows...)
	}
	if matchErr != nil {
		return nil, matchErr
	}

	return FilterItems(items, startDate, endDate)
}

// FilterItems applies the date window to an already-matched ledger and
// totals the rows that remain. Filtering never changes which lots were
// matched; it only selects which rows are reported. A row whose sell date
// does not parse fails the whole call rather than being dropped from the
// total.
func FilterItems(items []models.FiscalResultItem, startDate, endDate *time.Time) (*models.FiscalResult, error) {
	result := &models.FiscalResult{
		Items:       []models.FiscalResultItem{},
		TotalResult: decimal.Zero,
	}
	for _, item := range items {
		sellDay, err := utils.ParseDay(item.DateSell)
		if err != nil {
			return nil, fmt.Errorf("sell date %q for %s: %w", item.DateSell, item.Symbol, err)
		}
		if startDate != nil && sellDay.Before(utils.Day(*startDate)) {
			continue
		}
		if endDate != nil && sellDay.After(utils.Day(*endDate)) {
			continue
		}
		result.Items = append(result.Items, item)
		result.TotalResult = result.TotalResult.Add(item.Result)
	}
	sort.SliceStable(result.Items, func(i, j int) bool {
		if result.Items[i].DateSell != result.Items[j].DateSell {
			return result.Items[i].DateSell < result.Items[j].DateSell
		}
		return result.Items[i].Symbol < result.Items[j].Symbol
	})
	return result, nil
}

// groupBySymbol partitions the buy/sell transactions per asset symbol,
// preserving input order within each group.
func groupBySymbol(transactions []models.Transaction) map[string][]models.Transaction {
	grouped := make(map[string][]models.Transaction)
	for _, tx := range transactions {
		if tx.Type != models.TransactionBuy && tx.Type != models.TransactionSell {
			continue
		}
		grouped[tx.Symbol] = append(grouped[tx.Symbol], tx)
	}
	return grouped
}

// matchSymbol runs the FIFO pass for one asset. The stable sort keeps the
// input sequence as the tie-break for same-instant transactions, so the
// store's insertion order decides intra-day ordering.
func matchSymbol(symbol string, transactions []models.Transaction) ([]models.FiscalResultItem, error) {
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date.Before(transactions[j].Date)
	})

	var queue []*lot
	var items []models.FiscalResultItem

	for _, tx := range transactions {
		switch tx.Type {
		case models.TransactionBuy:
			queue = append(queue, &lot{
				acquisitionDate: tx.Date,
				remaining:       tx.Quantity,
				unitPrice:       tx.Price,
			})

		case models.TransactionSell:
			open := decimal.Zero
			for _, l := range queue {
				open = open.Add(l.remaining)
			}
			if tx.Quantity.GreaterThan(open) {
				return nil, &InsufficientLotsError{
					Symbol:    symbol,
					SaleDate:  tx.Date,
					Requested: tx.Quantity,
					Available: open,
				}
			}

			remainingToSell := tx.Quantity
			for remainingToSell.IsPositive() {
				front := queue[0]
				matched := decimal.Min(remainingToSell, front.remaining)

				items = append(items, models.FiscalResultItem{
					Symbol:    symbol,
					DateSell:  utils.FormatDay(tx.Date),
					DateBuy:   utils.FormatDay(front.acquisitionDate),
					Quantity:  matched,
					PriceSell: tx.Price,
					PriceBuy:  front.unitPrice,
					Result:    tx.Price.Sub(front.unitPrice).Mul(matched),
				})

				remainingToSell = remainingToSell.Sub(matched)
				front.remaining = front.remaining.Sub(matched)
				if front.remaining.IsZero() {
					queue = queue[1:]
				}
			}
		}
	}

	return items, nil
}

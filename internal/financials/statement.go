// Package financials fetches quarterly financial statements for tickers and
// encodes them into parquet files shaped like the quarterly table.
package financials

import (
	"context"
	"time"
)

// Statement is one fiscal quarter for one company. Values holds only the
// FLOAT columns of the quarterly table; a missing key is stored as NULL.
type Statement struct {
	Ticker string
	Symbol string
	Date   time.Time
	Values map[string]float64
}

type Source interface {
	Fetch(ctx context.Context, ticker string) ([]Statement, error)
}

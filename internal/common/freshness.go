package common

import "time"

// Cache TTLs per data type. Intraday stock quotes churn fastest; economic
// indicators are monthly/quarterly series and barely move.
const (
	TTLStocks   = 60 * time.Second
	TTLForex    = 5 * time.Minute
	TTLCrypto   = 2 * time.Minute
	TTLNews     = 10 * time.Minute
	TTLEconomic = 1 * time.Hour
)

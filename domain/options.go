package domain

// OptionContract is one row of an options chain. Numeric fields the feed
// omits (or reports as NaN) are nil. Contracts are immutable once fetched
// and never persisted.
type OptionContract struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            *float64 `json:"strike"`
	LastPrice         *float64 `json:"lastPrice"`
	Bid               *float64 `json:"bid"`
	Ask               *float64 `json:"ask"`
	Volume            *float64 `json:"volume"`
	OpenInterest      *float64 `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	InTheMoney        bool     `json:"inTheMoney"`
}

// OptionsChain is the payload of the options viewer: the chain for one
// expiration plus the full list of available expirations.
type OptionsChain struct {
	Symbol         string           `json:"symbol"`
	CurrentPrice   float64          `json:"currentPrice"`
	ExpirationDate string           `json:"expirationDate"`
	AllExpirations []string         `json:"allExpirations"`
	Calls          []OptionContract `json:"calls"`
	Puts           []OptionContract `json:"puts"`
	Timestamp      string           `json:"timestamp"`
}

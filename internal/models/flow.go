package models

import "time"

// TradeSide is the side of a broker transaction.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// BrokerTransaction is one row of a daily broker summary.
type BrokerTransaction struct {
	Broker string    `json:"broker"`
	Side   TradeSide `json:"type"`
	Volume float64   `json:"volume"`
	Value  float64   `json:"value"`
	Price  float64   `json:"avg_price"`
}

// ForeignFlowDay is the foreign net flow of one session.
type ForeignFlowDay struct {
	Date   time.Time `json:"date"`
	NetBuy float64   `json:"net_buy"`
	Buy    float64   `json:"buy,omitempty"`
	Sell   float64   `json:"sell,omitempty"`
}

// BrokerStat aggregates one broker's side of the session.
type BrokerStat struct {
	Broker   string  `json:"broker"`
	Volume   float64 `json:"volume"`
	AvgPrice float64 `json:"avg_price"`
}

// BandarAnalysis is the broker summary verdict.
type BandarAnalysis struct {
	Status       string       `json:"status"`
	Score        int          `json:"score"`
	Summary      string       `json:"summary"`
	TopBuyer     string       `json:"top_buyer"`
	TopSeller    string       `json:"top_seller"`
	BuyerType    string       `json:"buyer_type"`
	NetVolRatio  float64      `json:"net_vol_ratio"`
	AvgPriceDiff float64      `json:"avg_price_diff"`
	TopBuyers    []BrokerStat `json:"top_buyers,omitempty"`
	TopSellers   []BrokerStat `json:"top_sellers,omitempty"`
}

// ForeignAnalysis is the foreign flow verdict.
type ForeignAnalysis struct {
	Status string  `json:"status"`
	Score  int     `json:"score"`
	Net1D  float64 `json:"net_1d"`
	Net5D  float64 `json:"net_5d"`
	Net20D float64 `json:"net_20d"`
}

package models

import "time"

// Pivots are classic floor pivot levels.
type Pivots struct {
	P  float64 `json:"p"`
	R1 float64 `json:"r1"`
	R2 float64 `json:"r2"`
	S1 float64 `json:"s1"`
	S2 float64 `json:"s2"`
}

// FibLevel is one Fibonacci retracement level.
type FibLevel struct {
	Ratio float64 `json:"ratio"`
	Price float64 `json:"price"`
}

// HistoryRow is one line of the recent price table.
type HistoryRow struct {
	Date      time.Time `json:"date"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	ChangePct float64   `json:"change_pct"`
}

// TechnicalSnapshot is the output of technical analysis on the latest bar.
type TechnicalSnapshot struct {
	Ticker    string    `json:"ticker"`
	Timeframe Timeframe `json:"timeframe"`
	AsOf      time.Time `json:"as_of"`

	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`

	Volume      int64   `json:"volume"`
	AvgVolume20 float64 `json:"avg_vol_20"`
	VolRatio    float64 `json:"vol_ratio"`
	TxValue     float64 `json:"tx_value"`
	VolStatus   string  `json:"vol_status"`

	BandarStatus string `json:"bandar_status"`
	BandarAction string `json:"bandar_action"`

	Trend         string `json:"trend"`
	ADXStrength   string `json:"adx_strength"`
	MACDStatus    string `json:"macd_status"`
	BBStatus      string `json:"bb_status"`
	CandlePattern string `json:"candle_pattern"`
	WeeklyTrend   string `json:"weekly_trend"`
	MajorHolder   string `json:"major_holders"`

	SMA5       float64 `json:"sma_5"`
	SMA8       float64 `json:"sma_8"`
	SMA13      float64 `json:"sma_13"`
	EMA20      float64 `json:"ema_20"`
	EMA50      float64 `json:"ema_50"`
	RSI        float64 `json:"rsi"`
	CCI        float64 `json:"cci"`
	StochK     float64 `json:"stoch_k"`
	StochD     float64 `json:"stoch_d"`
	ADX        float64 `json:"adx"`
	PlusDI     float64 `json:"plus_di"`
	MinusDI    float64 `json:"minus_di"`
	ATR        float64 `json:"atr"`
	MFI        float64 `json:"mfi"`
	PrevMFI    float64 `json:"prev_mfi"`
	OBV        float64 `json:"obv"`
	OBVEMA     float64 `json:"obv_ema"`
	VWAP       float64 `json:"vwap"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	Supertrend float64 `json:"supertrend"`
	// SupertrendUp is true while price trades above the supertrend line.
	SupertrendUp bool `json:"supertrend_up"`

	Pivots     Pivots     `json:"pivots"`
	Fibonacci  []FibLevel `json:"fibonacci"`
	Support    float64    `json:"support"`
	Resistance float64    `json:"resistance"`
	StopLoss   float64    `json:"stop_loss"`
	Target     float64    `json:"target"`

	TechScore   int    `json:"tech_score"`
	BandarScore int    `json:"bandar_score"`
	FinalScore  int    `json:"final_score"`
	Verdict     string `json:"verdict"`

	RecentHistory []HistoryRow `json:"recent_history"`
	Valuation     Valuation    `json:"valuation"`

	// IndicatorSource names where RSI/EMA values came from.
	IndicatorSource string `json:"indicator_source"`
}

// IsBullish reports whether the trend label is bullish.
func (t *TechnicalSnapshot) IsBullish() bool {
	return len(t.Trend) >= 7 && t.Trend[:7] == "Bullish"
}

// RiskPlan is an ATR based stop and target.
type RiskPlan struct {
	Method      string  `json:"method"`
	Entry       float64 `json:"entry"`
	StopLoss    int     `json:"stop_loss"`
	TakeProfit  int     `json:"take_profit"`
	RiskPercent float64 `json:"risk_pct"`
	RiskReward  string  `json:"rr_ratio"`
}

// Verdict is the blended recommendation.
type Verdict struct {
	Score   int                `json:"final_score"`
	Signal  string             `json:"signal"`
	Details map[string]float64 `json:"details"`
}

// TradingPlan is the model's suggested trade.
type TradingPlan struct {
	BuyArea      string `json:"buy_area"`
	StopLoss     string `json:"stop_loss"`
	TargetProfit string `json:"target_profit"`
}

// AgentOpinion is the parsed response of one narration agent.
type AgentOpinion struct {
	Agent           string       `json:"agent"`
	SentimentScore  int          `json:"sentiment_score"`
	Analysis        string       `json:"analysis"`
	Action          string       `json:"action,omitempty"`
	Status          string       `json:"status,omitempty"`
	Warning         string       `json:"warning,omitempty"`
	ValuationStatus string       `json:"valuation_status,omitempty"`
	Plan            *TradingPlan `json:"trading_plan,omitempty"`
}

// CIODecision is the fused output of the chief investment agent.
type CIODecision struct {
	FinalScore        int    `json:"final_score"`
	RecommendedAction string `json:"recommended_action"`
	PrimaryStrategy   string `json:"primary_strategy"`
	AllocationSize    string `json:"allocation_size"`
	FinalReasoning    string `json:"final_reasoning"`
}

// Council groups all agent outputs for one report.
type Council struct {
	Technical   AgentOpinion `json:"technical"`
	Bandar      AgentOpinion `json:"bandarmology"`
	Fundamental AgentOpinion `json:"fundamental"`
	CIO         *CIODecision `json:"cio,omitempty"`
}

// Report is a finished analysis ready for dispatch.
type Report struct {
	ID         string             `json:"id"`
	Ticker     string             `json:"ticker"`
	CreatedAt  time.Time          `json:"created_at"`
	Technical  *TechnicalSnapshot `json:"technical"`
	Bandar     *BandarAnalysis    `json:"bandar,omitempty"`
	Foreign    *ForeignAnalysis   `json:"foreign,omitempty"`
	Risk       *RiskPlan          `json:"risk,omitempty"`
	Verdict    *Verdict           `json:"verdict,omitempty"`
	News       string             `json:"news,omitempty"`
	NewsItems  []NewsItem         `json:"news_items,omitempty"`
	Council    *Council           `json:"council,omitempty"`
	AIAnalysis string             `json:"ai_analysis"`
	Message    string             `json:"message"`
	ChartPath  string             `json:"chart_path,omitempty"`
	FromCache  bool               `json:"from_cache"`
}

// Score returns the headline score of the report.
func (r *Report) Score() int {
	if r.Council != nil && r.Council.CIO != nil && r.Council.CIO.FinalScore > 0 {
		return r.Council.CIO.FinalScore
	}
	if r.Verdict != nil {
		return r.Verdict.Score
	}
	if r.Technical != nil {
		return r.Technical.FinalScore
	}
	return 0
}

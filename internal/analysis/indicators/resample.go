package indicators

import (
	"time"

	"stocksignal/internal/models"
)

// ResampleWeekly folds daily candles into weeks ending on Sunday.
func ResampleWeekly(candles []models.Candle) []models.Candle {
	var out []models.Candle
	var cur models.Candle
	var curEnd time.Time

	for i, c := range candles {
		end := weekEnd(c.Timestamp)
		if i == 0 || !end.Equal(curEnd) {
			if i > 0 {
				out = append(out, cur)
			}
			curEnd = end
			cur = models.Candle{
				Timestamp: end,
				Open:      c.Open,
				High:      c.High,
				Low:       c.Low,
				Close:     c.Close,
				Volume:    c.Volume,
			}
			continue
		}
		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume += c.Volume
	}
	if len(candles) > 0 {
		out = append(out, cur)
	}
	return out
}

func weekEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (7 - int(day.Weekday())) % 7
	return day.AddDate(0, 0, offset)
}

package insights

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

var bucketOrder = []TimeOfDay{Morning, Afternoon, Evening}

func BucketForHour(hour int) TimeOfDay {
	switch {
	case hour < 12:
		return Morning
	case hour < 17:
		return Afternoon
	default:
		return Evening
	}
}

// Bucket classifies t by its hour in loc.
func Bucket(t time.Time, loc *time.Location) (int, TimeOfDay) {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Hour(), BucketForHour(t.Hour())
}

// Histogram counts completed sessions per time-of-day bucket.
type Histogram map[TimeOfDay]int

func DecodeHistogram(raw datatypes.JSON) Histogram {
	h := Histogram{}
	if len(raw) == 0 {
		return h
	}
	_ = json.Unmarshal(raw, &h)
	return h
}

func (h Histogram) Encode() datatypes.JSON {
	b, _ := json.Marshal(h)
	return datatypes.JSON(b)
}

// Peak returns the bucket with the most sessions. Ties go to latest, so the
// result matches the most recent observation until one bucket clearly leads.
func (h Histogram) Peak(latest TimeOfDay) TimeOfDay {
	best := latest
	bestCount := h[latest]
	for _, b := range bucketOrder {
		if h[b] > bestCount {
			best, bestCount = b, h[b]
		}
	}
	return best
}

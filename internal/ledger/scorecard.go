package ledger

import (
	"sort"
	"time"

	"github.com/KeyzrSoze/signals/internal/contracts"
)

// Scorecard summarizes realized prediction quality over the resolved
// part of the registry. A record counts as a spike call when its score
// exceeded the score cutoff at prediction time, and as a realized spike
// when its outcome exceeded the return cutoff.
type Scorecard struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`

	SpikeCalls     int `json:"spike_calls"`
	RealizedSpikes int `json:"realized_spikes"`
	TruePositives  int `json:"true_positives"`

	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	MeanOutcome float64 `json:"mean_outcome"`

	ByDate []DateBucket `json:"by_date"`
}

// DateBucket is the per-prediction-date slice of the scorecard. Correct
// counts resolved records where the call matched the outcome in either
// direction, so Accuracy credits true negatives too.
type DateBucket struct {
	PredictionDate time.Time `json:"prediction_date"`
	Total          int       `json:"total"`
	Resolved       int       `json:"resolved"`
	TruePositives  int       `json:"true_positives"`
	Correct        int       `json:"correct"`
	Accuracy       float64   `json:"accuracy"`
}

// BuildScorecard folds the registry into a scorecard using the given
// spike cutoffs. Pending records count toward totals only; every rate
// is computed over resolved records.
func BuildScorecard(records []contracts.PredictionRecord, scoreCutoff, returnCutoff float64) Scorecard {
	card := Scorecard{Total: len(records)}
	buckets := make(map[time.Time]*DateBucket)

	sumOutcome := 0.0
	for _, rec := range records {
		bucket, ok := buckets[rec.PredictionDate]
		if !ok {
			bucket = &DateBucket{PredictionDate: rec.PredictionDate}
			buckets[rec.PredictionDate] = bucket
		}
		bucket.Total++

		if !rec.Resolved() {
			card.Pending++
			continue
		}
		card.Resolved++
		bucket.Resolved++
		sumOutcome += *rec.OutcomePct

		called := rec.PredictedScore > scoreCutoff
		realized := *rec.OutcomePct > returnCutoff
		if called {
			card.SpikeCalls++
		}
		if realized {
			card.RealizedSpikes++
		}
		if called && realized {
			card.TruePositives++
			bucket.TruePositives++
		}
		if called == realized {
			bucket.Correct++
		}
	}

	if card.SpikeCalls > 0 {
		card.Precision = float64(card.TruePositives) / float64(card.SpikeCalls)
	}
	if card.RealizedSpikes > 0 {
		card.Recall = float64(card.TruePositives) / float64(card.RealizedSpikes)
	}
	if card.Resolved > 0 {
		card.MeanOutcome = sumOutcome / float64(card.Resolved)
	}

	card.ByDate = make([]DateBucket, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket.Resolved > 0 {
			bucket.Accuracy = float64(bucket.Correct) / float64(bucket.Resolved)
		}
		card.ByDate = append(card.ByDate, *bucket)
	}
	sort.Slice(card.ByDate, func(i, j int) bool {
		return card.ByDate[i].PredictionDate.Before(card.ByDate[j].PredictionDate)
	})

	return card
}

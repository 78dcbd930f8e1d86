package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Status reports whether a prediction exists for a day
type Status string

// Confidence tags how much underlying data supported a prediction
type Confidence string

// MoodBucket is the qualitative category derived from a predicted mood
type MoodBucket string

const (
	StatusAvailable Status = "available"
	StatusMissing   Status = "missing"

	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"

	BucketLow    MoodBucket = "low"
	BucketMedium MoodBucket = "medium"
	BucketHigh   MoodBucket = "high"
)

// Valid reports whether c is one of the known confidence levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// PredictionRecord is one day of prediction history.
// PredictedMood, Confidence and Explanation are only meaningful when
// Status is StatusAvailable.
type PredictionRecord struct {
	Date          DateKey
	Status        Status
	PredictedMood float64
	Confidence    Confidence
	Explanation   []string
	ModelVersion  string
}

// Key returns the record's DateKey
func (r PredictionRecord) Key() DateKey { return r.Date }

// Available reports whether the record carries a prediction
func (r PredictionRecord) Available() bool { return r.Status == StatusAvailable }

// MissingPrediction builds the explicit placeholder for a day with no data
func MissingPrediction(date DateKey) PredictionRecord {
	return PredictionRecord{Date: date, Status: StatusMissing, Explanation: []string{}}
}

type predictionWire struct {
	Date          DateKey     `json:"date"`
	Status        Status      `json:"status"`
	PredictedMood *float64    `json:"predicted_mood"`
	Confidence    *Confidence `json:"confidence"`
	Explanation   []string    `json:"explanation"`
	ModelVersion  string      `json:"model_version,omitempty"`
}

func (r PredictionRecord) MarshalJSON() ([]byte, error) {
	w := predictionWire{
		Date:         r.Date,
		Status:       r.Status,
		Explanation:  r.Explanation,
		ModelVersion: r.ModelVersion,
	}
	if w.Explanation == nil {
		w.Explanation = []string{}
	}
	if r.Available() {
		mood, conf := r.PredictedMood, r.Confidence
		w.PredictedMood = &mood
		w.Confidence = &conf
	}
	return json.Marshal(w)
}

func (r *PredictionRecord) UnmarshalJSON(b []byte) error {
	var w predictionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = PredictionRecord{
		Date:         w.Date,
		Status:       w.Status,
		Explanation:  w.Explanation,
		ModelVersion: w.ModelVersion,
	}
	// A day without a predicted mood is missing, whatever its status says.
	if w.PredictedMood == nil {
		*r = MissingPrediction(w.Date)
		r.ModelVersion = w.ModelVersion
		return nil
	}
	if r.Status == "" {
		r.Status = StatusAvailable
	}
	r.PredictedMood = *w.PredictedMood
	if w.Confidence != nil {
		r.Confidence = *w.Confidence
	}
	return nil
}

// CheckinRecord is a user-authored mood check-in. At most one exists per day.
type CheckinRecord struct {
	Date      DateKey
	Mood      int
	Note      string
	CreatedAt time.Time
}

// Key returns the record's DateKey
func (r CheckinRecord) Key() DateKey { return r.Date }

// HasNote reports whether the check-in carries a non-blank note
func (r CheckinRecord) HasNote() bool { return strings.TrimSpace(r.Note) != "" }

// HistoryResponse is the body of GET /history
type HistoryResponse struct {
	Start DateKey            `json:"start"`
	End   DateKey            `json:"end"`
	Days  []PredictionRecord `json:"days"`
}

// CheckinDay is one entry of GET /mood. Mood is nil for missing days.
type CheckinDay struct {
	Date      DateKey    `json:"date"`
	Mood      *int       `json:"mood"`
	Note      *string    `json:"note"`
	Status    Status     `json:"status"`
	CreatedAt *time.Time `json:"created_at"`
}

// CheckinHistoryResponse is the body of GET /mood
type CheckinHistoryResponse struct {
	Start DateKey      `json:"start"`
	End   DateKey      `json:"end"`
	Days  []CheckinDay `json:"days"`
}

// Records returns the available entries as CheckinRecords.
func (r CheckinHistoryResponse) Records() []CheckinRecord {
	var out []CheckinRecord
	for _, day := range r.Days {
		if day.Status != StatusAvailable || day.Mood == nil {
			continue
		}
		rec := CheckinRecord{Date: day.Date, Mood: *day.Mood}
		if day.Note != nil {
			rec.Note = *day.Note
		}
		if day.CreatedAt != nil {
			rec.CreatedAt = *day.CreatedAt
		}
		out = append(out, rec)
	}
	return out
}

// CheckinRequest is the body of POST /mood
type CheckinRequest struct {
	Date DateKey `json:"date"`
	Mood int     `json:"mood"`
	Note *string `json:"note"`
}

// CheckinResponse is the body returned by POST /mood
type CheckinResponse struct {
	Date      DateKey   `json:"date"`
	Mood      int       `json:"mood"`
	Note      *string   `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// TodayResponse is the body of GET /today
type TodayResponse struct {
	Date          DateKey     `json:"date"`
	PredictedMood *float64    `json:"predicted_mood"`
	Confidence    *Confidence `json:"confidence"`
	Explanation   []string    `json:"explanation"`
	ModelVersion  *string     `json:"model_version"`
	Status        string      `json:"status"`
	Reason        string      `json:"reason,omitempty"`
}

// NotePtr returns nil for blank notes so they are sent as JSON null
func NotePtr(note string) *string {
	if strings.TrimSpace(note) == "" {
		return nil
	}
	return &note
}

package day

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/julianstephens/moodlit/internal/dayview"
	"github.com/julianstephens/moodlit/internal/models"
)

func TestRenderOKView(t *testing.T) {
	v := dayview.View{
		Date:          models.MustDateKey("2025-06-01"),
		Status:        dayview.StatusOK,
		PredictedMood: 4.2,
		Confidence:    models.ConfidenceHigh,
		Explanation:   []string{"Slept well", "Exercised"},
		ModelVersion:  "v2",
		Checkin:       &models.CheckinRecord{Date: models.MustDateKey("2025-06-01"), Mood: 4, Note: "sunny", CreatedAt: time.Now()},
	}

	out := Render(v)
	assert.Contains(t, out, "Sunday, June 1 2025")
	assert.Contains(t, out, "4.2 (high)")
	assert.Contains(t, out, "• Slept well")
	assert.Contains(t, out, "4 (good)")
	assert.Contains(t, out, "sunny")
}

func TestRenderNotComputedAndError(t *testing.T) {
	v := dayview.View{
		Date:   models.MustDateKey("2025-06-01"),
		Status: dayview.StatusNotComputed,
		Reason: "No prediction for this date",
	}
	assert.Contains(t, Render(v), "No prediction for this date")
	assert.Contains(t, Render(v), "Press e to add one")

	v.Status = dayview.StatusError
	v.Reason = "fetch history: 500"
	assert.Contains(t, Render(v), "Could not load predictions: fetch history: 500")
}

func TestRenderFutureHasNoCheckinPrompt(t *testing.T) {
	v := dayview.View{Date: models.MustDateKey("2030-01-01"), Status: dayview.StatusNotComputed, IsFuture: true}
	assert.Contains(t, Render(v), "Check-ins open on the day itself.")
}

func TestMoodLabel(t *testing.T) {
	assert.Equal(t, "1 (awful)", MoodLabel(1))
	assert.Equal(t, "7", MoodLabel(7))
}

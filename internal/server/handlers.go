package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julianstephens/moodlit/internal/constants"
	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/utils"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Error("Request failed", "path", r.URL.Path, "error", err)
	writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
}

// parseRange reads the start and end query parameters. On failure it writes
// the error response and returns ok=false.
func parseRange(w http.ResponseWriter, r *http.Request) (start, end models.DateKey, ok bool) {
	q := r.URL.Query()
	var err error
	if start, err = models.ParseDateKey(q.Get("start")); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid start: %v", err))
		return start, end, false
	}
	if end, err = models.ParseDateKey(q.Get("end")); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid end: %v", err))
		return start, end, false
	}
	if start.After(end) {
		writeDetail(w, http.StatusBadRequest, "start must be on or before end")
		return start, end, false
	}
	if utils.DaysSpan(start, end) > maxRangeDays {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("range must not exceed %d days", maxRangeDays))
		return start, end, false
	}
	return start, end, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}
	stored, err := s.store.Predictions(r.Context(), start, end)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	byDate := make(map[models.DateKey]models.PredictionRecord, len(stored))
	for _, rec := range stored {
		byDate[rec.Date] = rec
	}
	resp := models.HistoryResponse{Start: start, End: end, Days: []models.PredictionRecord{}}
	for _, date := range utils.DaysBetween(start, end) {
		if rec, ok := byDate[date]; ok {
			resp.Days = append(resp.Days, rec)
		} else {
			resp.Days = append(resp.Days, models.MissingPrediction(date))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCheckins(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}
	stored, err := s.store.Checkins(r.Context(), s.userID, start, end)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	byDate := make(map[models.DateKey]models.CheckinRecord, len(stored))
	for _, rec := range stored {
		byDate[rec.Date] = rec
	}
	resp := models.CheckinHistoryResponse{Start: start, End: end, Days: []models.CheckinDay{}}
	for _, date := range utils.DaysBetween(start, end) {
		rec, ok := byDate[date]
		if !ok {
			resp.Days = append(resp.Days, models.CheckinDay{Date: date, Status: models.StatusMissing})
			continue
		}
		mood, created := rec.Mood, rec.CreatedAt
		resp.Days = append(resp.Days, models.CheckinDay{
			Date:      date,
			Mood:      &mood,
			Note:      models.NotePtr(rec.Note),
			Status:    models.StatusAvailable,
			CreatedAt: &created,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitCheckin(w http.ResponseWriter, r *http.Request) {
	var raw struct {
		Date string  `json:"date"`
		Mood *int    `json:"mood"`
		Note *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := models.ParseDateKey(raw.Date)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("date: %v", err))
		return
	}
	if raw.Mood == nil || *raw.Mood < constants.MinMood || *raw.Mood > constants.MaxMood {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("mood: must be an integer between %d and %d", constants.MinMood, constants.MaxMood))
		return
	}

	rec := models.CheckinRecord{Date: date, Mood: *raw.Mood}
	if raw.Note != nil {
		rec.Note = *raw.Note
	}
	saved, err := s.store.UpsertCheckin(r.Context(), s.userID, rec)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.CheckinResponse{
		Date:      saved.Date,
		Mood:      saved.Mood,
		Note:      models.NotePtr(saved.Note),
		CreatedAt: saved.CreatedAt,
	})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	today := models.DateKeyOf(s.now().In(s.loc))
	rec, ok, err := s.store.Prediction(r.Context(), today)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, models.TodayResponse{
			Date:        today,
			Explanation: []string{},
			Status:      "not_computed",
			Reason:      constants.NotComputedMsg,
		})
		return
	}

	mood, conf := rec.PredictedMood, rec.Confidence
	resp := models.TodayResponse{
		Date:          today,
		PredictedMood: &mood,
		Confidence:    &conf,
		Explanation:   rec.Explanation,
		Status:        string(models.StatusAvailable),
	}
	if rec.ModelVersion != "" {
		version := rec.ModelVersion
		resp.ModelVersion = &version
	}
	writeJSON(w, http.StatusOK, resp)
}

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"salah-reminder-bot/internal/domain"
	"salah-reminder-bot/internal/domain/model"
	"salah-reminder-bot/internal/infra/prayertimes"
)

var dateParam = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, errorBody{Error: msg, Message: detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	checks := map[string]string{}
	for _, c := range s.deps.Checks {
		if err := c.Check(r.Context()); err != nil {
			s.log.Warn().Err(err).Str("check", c.Name).Msg("health check failed")
			checks[c.Name] = err.Error()
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}
	writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "salah-reminder-bot",
		"checks":  checks,
	})
}

// handlePrayerTimes serves GET /api/v1/prayer-times?lat=&lng=[&date=YYYY-MM-DD].
func (s *Server) handlePrayerTimes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if q.Get("lat") == "" || err != nil {
		writeError(w, http.StatusBadRequest, "Missing or invalid latitude parameter", "")
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if q.Get("lng") == "" || err != nil {
		writeError(w, http.StatusBadRequest, "Missing or invalid longitude parameter", "")
		return
	}
	if lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "Invalid latitude. Must be between -90 and 90", "")
		return
	}
	if lng < -180 || lng > 180 {
		writeError(w, http.StatusBadRequest, "Invalid longitude. Must be between -180 and 180", "")
		return
	}
	date, ok := s.parseDate(w, q.Get("date"))
	if !ok {
		return
	}

	loc, err := model.NewLocation(lat, lng)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	schedule, err := s.deps.Prayers.GetPrayerTimes(r.Context(), loc, date)
	if err != nil {
		s.writeScheduleError(w, err)
		return
	}
	resp := prayertimes.NewScheduleResponse(schedule)
	if s.deps.Geocoder != nil {
		resp.City = s.deps.Geocoder.CityName(r.Context(), loc)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUserSchedule serves GET /api/v1/users/{id}/schedule[?date=].
func (s *Server) handleUserSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "Invalid user id", "")
		return
	}
	date, ok := s.parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}
	schedule, _, err := s.deps.Prayers.GetUserPrayerTimes(r.Context(), id, date)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found", "")
		return
	case errors.Is(err, domain.ErrLocationRequired):
		writeError(w, http.StatusUnprocessableEntity, "User has not shared a location", "")
		return
	case err != nil:
		s.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prayertimes.NewScheduleResponse(schedule))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Users.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get totals", "")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TotalUsers int `json:"total_users"`
	}{TotalUsers: n})
}

// parseDate defaults to today in the reminder timezone.
func (s *Server) parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return s.deps.Clock().In(s.deps.Location), true
	}
	if !dateParam.MatchString(raw) {
		writeError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD", "")
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(time.DateOnly, raw, s.deps.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD", "")
		return time.Time{}, false
	}
	return d, true
}

func (s *Server) writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "Prayer times not found", err.Error())
	default:
		s.log.Error().Err(err).Msg("prayer times lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch prayer times", err.Error())
	}
}

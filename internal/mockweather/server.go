// Package mockweather is a local stand-in for the Open-Meteo forecast API.
package mockweather

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
)

// Call records one forecast request made to the mock service.
type Call struct {
	Latitude  float64
	Longitude float64
	Current   string
}

// Conditions is the current weather the mock reports.
type Conditions struct {
	Temperature float64
	WindSpeed   float64
}

// Server implements the slice of the Open-Meteo forecast API the pipeline uses.
type Server struct {
	mu       sync.Mutex
	calls    []Call
	fixed    Conditions
	byCoords map[string]Conditions
	status   int
}

// New constructs a mock server that reports fixed for every location.
func New(fixed Conditions) *Server {
	return &Server{
		fixed:    fixed,
		byCoords: make(map[string]Conditions),
		status:   http.StatusOK,
	}
}

// Set overrides the conditions for one coordinate pair.
func (s *Server) Set(latitude, longitude float64, c Conditions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCoords[coordKey(latitude, longitude)] = c
}

// FailWith makes every subsequent request return status. Pass http.StatusOK to recover.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", s.handleForecast)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLon != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": true, "reason": "invalid coordinates"})
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Latitude: lat, Longitude: lon, Current: q.Get("current")})
	status := s.status
	c, ok := s.byCoords[coordKey(lat, lon)]
	if !ok {
		c = s.fixed
	}
	s.mu.Unlock()

	if status != http.StatusOK {
		writeJSON(w, status, map[string]any{"error": true, "reason": http.StatusText(status)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"latitude":  lat,
		"longitude": lon,
		"current_units": map[string]string{
			"temperature_2m": "°C",
			"wind_speed_10m": "m/s",
		},
		"current": map[string]any{
			"temperature_2m": c.Temperature,
			"wind_speed_10m": c.WindSpeed,
		},
	})
}

func coordKey(latitude, longitude float64) string {
	return fmt.Sprintf("%.4f,%.4f", latitude, longitude)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

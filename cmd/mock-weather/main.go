package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/shpitdev/packing-pipeline/internal/mockweather"
)

func main() {
	addr := defaultString("MOCK_WEATHER_ADDR", ":8090")
	temperature := defaultFloat("MOCK_WEATHER_TEMPERATURE", 18)
	windSpeed := defaultFloat("MOCK_WEATHER_WIND_SPEED", 3.2)
	failStatus := 0

	fs := flag.NewFlagSet("mock-weather", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.Float64Var(&temperature, "temperature", temperature, "Temperature in °C reported for every location")
	fs.Float64Var(&windSpeed, "wind-speed", windSpeed, "Wind speed in m/s reported for every location")
	fs.IntVar(&failStatus, "fail-status", failStatus, "Answer every request with this HTTP status (0 disables)")
	_ = fs.Parse(os.Args[1:])

	srv := mockweather.New(mockweather.Conditions{Temperature: temperature, WindSpeed: windSpeed})
	if failStatus != 0 {
		srv.FailWith(failStatus)
	}

	_, _ = fmt.Fprintf(os.Stdout, "mock-weather listening on %s (temperature=%g wind=%g)\n", addr, temperature, windSpeed)
	_, _ = fmt.Fprintf(os.Stdout, "point the pipeline at it with PACKER_WEATHER_URL=http://localhost%s/v1/forecast\n", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}

func defaultFloat(envVar string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid %s=%q, using %g\n", envVar, v, fallback)
		return fallback
	}
	return f
}

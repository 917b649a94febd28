package pipeline

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes rows as a CSV with the stable Header() ordering.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.ID,
			r.Request,
			r.Destination,
			r.Duration,
			r.TravelType,
			r.WeatherSummary,
			r.Fallbacks,
			r.Report,
			r.Status,
			r.Error,
			r.RunID,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads rows written by WriteCSV.
//
// Extra columns are ignored. Required columns from OutputContract must exist.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	index, err := OutputContract.Locate(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		get := func(col string) string {
			i := index[col]
			if i < 0 || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		rows = append(rows, Row{
			ID:             get("id"),
			Request:        get("request"),
			Destination:    get("destination"),
			Duration:       get("duration"),
			TravelType:     get("travel_type"),
			WeatherSummary: get("weather_summary"),
			Fallbacks:      get("fallbacks"),
			Report:         get("report"),
			Status:         get("status"),
			Error:          get("error"),
			RunID:          get("run_id"),
		})
	}
}

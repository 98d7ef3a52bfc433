// Standalone mock InfluxDB for trying the CLI without a real bucket.
//
// It answers Flux range queries on /api/v2/query with annotated CSV holding
// one reading per field every 30 seconds.
//
// Usage:
//
//	go run ./example/cmd/mockinflux
//
// Then in another terminal:
//
//	go run ./cmd/aquaboard serve -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"regexp"
	"time"
)

const step = 30 * time.Second

// rangePattern extracts the bounds of the range() call in a Flux query.
var rangePattern = regexp.MustCompile(`range\(start:\s*([^,\s]+),\s*stop:\s*([^)\s]+)\)`)

// field is one simulated reading.
type field struct {
	name      string
	datatype  string
	mid       float64
	amplitude float64
	period    time.Duration
}

var fields = []field{
	{"ph", "double", 7.2, 0.4, 6 * time.Hour},
	{"turbidez", "double", 3.5, 1.5, 45 * time.Minute},
	{"conductividad", "long", 480, 60, 90 * time.Minute},
}

func main() {
	fmt.Println("Mock InfluxDB starting on :8086")
	fmt.Println("Fields: ph, turbidez, conductividad")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	http.HandleFunc("POST /api/v2/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Token " || r.Header.Get("Authorization") == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized access")
			return
		}

		var payload struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid", "failed to decode request body")
			return
		}

		m := rangePattern.FindStringSubmatch(payload.Query)
		if m == nil {
			writeError(w, http.StatusBadRequest, "invalid", "query has no range")
			return
		}
		start, err1 := time.Parse(time.RFC3339Nano, m[1])
		stop, err2 := time.Parse(time.RFC3339Nano, m[2])
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "invalid", "range bounds must be RFC3339 timestamps")
			return
		}

		slog.Info("query",
			"org", r.URL.Query().Get("org"),
			"start", start.Format(time.RFC3339),
			"stop", stop.Format(time.RFC3339),
		)

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := writeCSV(w, start, stop); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(":8086", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// writeCSV writes one annotated CSV table per field.
func writeCSV(w io.Writer, start, stop time.Time) error {
	startStr := start.UTC().Format(time.RFC3339Nano)
	stopStr := stop.UTC().Format(time.RFC3339Nano)

	for table, f := range fields {
		if _, err := fmt.Fprintf(w,
			"#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,%s,string,string\n"+
				"#group,false,false,true,true,false,false,true,true\n"+
				"#default,_result,,,,,,,\n"+
				",result,table,_start,_stop,_time,_value,_field,_measurement\n",
			f.datatype); err != nil {
			return err
		}

		for t := start.Truncate(step); t.Before(stop); t = t.Add(step) {
			if t.Before(start) {
				continue
			}
			v := wave(t, f.mid, f.amplitude, f.period)
			value := fmt.Sprintf("%.2f", v)
			if f.datatype == "long" {
				value = fmt.Sprintf("%d", int64(v))
			}
			if _, err := fmt.Fprintf(w, ",,%d,%s,%s,%s,%s,%s,water\n",
				table, startStr, stopStr, t.UTC().Format(time.RFC3339), value, f.name); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}

// wave oscillates around mid with the given amplitude and period.
func wave(t time.Time, mid, amplitude float64, period time.Duration) float64 {
	phase := float64(t.UnixNano()%int64(period)) / float64(period)
	return mid + amplitude*math.Sin(2*math.Pi*phase)
}

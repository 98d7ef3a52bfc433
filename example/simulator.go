package main

import (
	"context"
	"math"
	"time"

	"github.com/jpalmerr/aquaboard/series"
	"github.com/jpalmerr/aquaboard/source"
)

// simulator is a [source.Source] that makes up plausible readings for a
// treatment plant: one sample every step, with the occasional turbidity
// sensor dropout and a stray unknown field.
type simulator struct {
	step time.Duration
}

func (s simulator) Query(ctx context.Context, req source.Request) (source.Rows, error) {
	var rows []series.Row
	for t := req.Start.Truncate(s.step); t.Before(req.Stop); t = t.Add(s.step) {
		if t.Before(req.Start) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := t.Unix() / int64(s.step/time.Second)
		rows = append(rows,
			series.Row{Time: t, Field: "ph", Value: wave(t, 7.2, 0.4, 6*time.Hour)},
			series.Row{Time: t, Field: "conductividad", Value: int64(wave(t, 480, 60, 90*time.Minute))},
			series.Row{Time: t, Field: "bateria", Value: 87.0},
		)
		// the turbidity probe skips every seventh reading
		if n%7 != 0 {
			rows = append(rows, series.Row{Time: t, Field: "turbidez", Value: wave(t, 3.5, 1.5, 45*time.Minute)})
		}
	}
	return source.NewRows(rows), nil
}

func (simulator) Close() error {
	return nil
}

// wave oscillates around mid with the given amplitude and period.
func wave(t time.Time, mid, amplitude float64, period time.Duration) float64 {
	phase := float64(t.UnixNano()%int64(period)) / float64(period)
	v := mid + amplitude*math.Sin(2*math.Pi*phase)
	return math.Round(v*100) / 100
}

package weather

import (
	"time"

	"github.com/justestif/go-weather-mood/internal/mood"
)

// currentResponse is the subset of the current-weather payload we use.
type currentResponse struct {
	Name    string `json:"name"`
	Dt      int64  `json:"dt"`
	Zone    int64  `json:"timezone"` // Offset from UTC in seconds
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

type apiError struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}

func (r currentResponse) report() Report {
	rep := Report{
		Observation: mood.Observation{
			Condition:          mood.Unknown,
			TemperatureCelsius: r.Main.Temp,
			LocalHour:          localHour(r.Dt, r.Zone),
		},
		City: r.Name,
	}
	if len(r.Weather) > 0 {
		w := r.Weather[0]
		rep.Condition = mood.ParseCondition(w.Main)
		rep.Description = w.Description
		rep.Icon = w.Icon
	}
	return rep
}

// localHour is the hour of day at the observed location.
func localHour(dt, offset int64) int {
	return time.Unix(dt+offset, 0).UTC().Hour()
}

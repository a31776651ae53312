// Package mood converts weather observations into mood scores and the audio
// profiles used to select matching tracks.
package mood

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Condition is a weather condition code as reported by the weather provider
// (the OpenWeatherMap "main" group name).
type Condition string

// Known weather conditions. Any other value is treated as unknown and scores neutrally.
const (
	Clear        Condition = "Clear"
	Clouds       Condition = "Clouds"
	Rain         Condition = "Rain"
	Snow         Condition = "Snow"
	Thunderstorm Condition = "Thunderstorm"
	Drizzle      Condition = "Drizzle"
	Mist         Condition = "Mist"
	Fog          Condition = "Fog"
	Haze         Condition = "Haze"
)

// Unknown is used when no usable condition is available.
const Unknown Condition = "Unknown"

// knownConditions lists every condition with a dedicated score.
var knownConditions = []Condition{Clear, Clouds, Rain, Snow, Thunderstorm, Drizzle, Mist, Fog, Haze}

// ParseCondition normalizes a provider condition string ("rain", " Rain ")
// to its canonical form. Unrecognized values are returned trimmed but otherwise unchanged.
func ParseCondition(s string) Condition {
	s = strings.TrimSpace(s)
	for _, c := range knownConditions {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return Condition(s)
}

// Known reports whether the condition has a dedicated score.
func (c Condition) Known() bool {
	for _, k := range knownConditions {
		if c == k {
			return true
		}
	}
	return false
}

// ErrInvalidInput is returned when an observation fails validation.
var ErrInvalidInput = errors.New("invalid input")

// Observation is a single weather reading for a location at a local hour.
type Observation struct {
	Condition          Condition `json:"condition" validate:"required"`
	TemperatureCelsius float64   `json:"temperatureCelsius" validate:"gte=-100,lte=100"`
	LocalHour          int       `json:"localHour" validate:"gte=0,lte=23"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the observation ranges. Errors wrap ErrInvalidInput.
func (o Observation) Validate() error {
	if math.IsNaN(o.TemperatureCelsius) || math.IsInf(o.TemperatureCelsius, 0) {
		return fmt.Errorf("%w: temperature must be a finite number", ErrInvalidInput)
	}
	if err := validatorInstance().Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (got %v)", ErrInvalidInput, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justestif/go-weather-mood/internal/mood"
)

var scoreFlags struct {
	weather string
	temp    float64
	hour    int
	bias    int
	offset  int
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score the mood of a weather observation",
	Example: `  weather-mood score --weather Rain --temp 12 --hour 22
  weather-mood score --weather Clear --temp 25 --hour 14 --offset 10`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		obs := mood.Observation{
			Condition:          mood.ParseCondition(scoreFlags.weather),
			TemperatureCelsius: scoreFlags.temp,
			LocalHour:          scoreFlags.hour,
		}
		if err := obs.Validate(); err != nil {
			return err
		}

		r := mood.Evaluate(obs, scoreFlags.bias, scoreFlags.offset)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "base mood:   %d\n", r.BaseScore)
		fmt.Fprintf(out, "legacy mood: %d\n", mood.LegacyBaseMoodScore(obs))
		fmt.Fprintf(out, "final mood:  %d (%s)\n", r.FinalScore, r.Category.Label())
		fmt.Fprintf(out, "profile:     energy %.2f, valence %.2f, tempo %d-%d BPM, acousticness %.2f\n",
			r.Profile.Energy, r.Profile.Valence, r.Profile.MinTempo, r.Profile.MaxTempo, r.Profile.Acousticness)
		return nil
	},
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreFlags.weather, "weather", "", "weather condition (Clear, Clouds, Rain, ...)")
	f.Float64Var(&scoreFlags.temp, "temp", 20, "temperature in °C")
	f.IntVar(&scoreFlags.hour, "hour", 12, "local hour (0-23)")
	f.IntVar(&scoreFlags.bias, "bias", 0, "learned bias to apply")
	f.IntVar(&scoreFlags.offset, "offset", 0, "manual offset (-20..20)")
	_ = scoreCmd.MarkFlagRequired("weather")
	rootCmd.AddCommand(scoreCmd)
}

package mood

// MaxManualOffset bounds the explicit user adjustment in either direction.
const MaxManualOffset = 20

// Adjust applies the learned bias and a manual offset to a base score.
// The manual offset is clamped to ±MaxManualOffset and the result to [0,100].
func Adjust(base Score, learnedBias, manualOffset int) Score {
	manualOffset = clamp(manualOffset, -MaxManualOffset, MaxManualOffset)
	return clamp(base+learnedBias+manualOffset, 0, 100)
}

// Result is the scored outcome of one observation.
type Result struct {
	BaseScore  Score        `json:"baseScore"`
	FinalScore Score        `json:"moodScore"`
	Category   Category     `json:"category"`
	Profile    AudioProfile `json:"audioProfile"`
}

// Evaluate scores an observation, applies the adjustments and maps the final
// score onto a linear audio profile. The observation must be valid.
func Evaluate(o Observation, learnedBias, manualOffset int) Result {
	base := BaseMoodScore(o)
	final := Adjust(base, learnedBias, manualOffset)
	return Result{
		BaseScore:  base,
		FinalScore: final,
		Category:   CategoryFor(final),
		Profile:    ProfileFromScore(final),
	}
}

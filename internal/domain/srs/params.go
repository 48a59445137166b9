package srs

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Ease factor limits
	InitialEaseFactor float64
	MinEaseFactor     float64

	// Score boundaries. PassScore resets the interval, ReviewingScore and
	// MasteredScore drive the status. The two tiers are independent.
	PassScore      float64
	ReviewingScore float64
	MasteredScore  float64

	// Fixed intervals in days for the early repetitions and for failures
	FirstInterval  int
	SecondInterval int
	FailInterval   int

	// MaxQuality is the top of the SM-2 quality scale (0..MaxQuality)
	MaxQuality int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the default.
type ParamsConfig struct {
	InitialEaseFactor float64
	MinEaseFactor     float64

	PassScore      float64
	ReviewingScore float64
	MasteredScore  float64

	FirstInterval  int
	SecondInterval int
	FailInterval   int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		InitialEaseFactor: 2.5,
		MinEaseFactor:     1.3,

		PassScore:      60,
		ReviewingScore: 70,
		MasteredScore:  90,

		FirstInterval:  1,
		SecondInterval: 6,
		FailInterval:   1,

		MaxQuality: 5,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.InitialEaseFactor > 0 {
		params.InitialEaseFactor = config.InitialEaseFactor
	}
	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}

	if config.PassScore > 0 {
		params.PassScore = config.PassScore
	}
	if config.ReviewingScore > 0 {
		params.ReviewingScore = config.ReviewingScore
	}
	if config.MasteredScore > 0 {
		params.MasteredScore = config.MasteredScore
	}

	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}
	if config.FailInterval > 0 {
		params.FailInterval = config.FailInterval
	}

	return params
}

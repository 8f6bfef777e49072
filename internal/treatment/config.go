package treatment

// GenerationMode selects which plan-length policy is active.
//
// ModeBatch generates the whole plan up front and review only records
// feedback; ModeIncremental generates day 1 at start and appends one day
// per review.
type GenerationMode string

const (
	ModeBatch       GenerationMode = "batch"
	ModeIncremental GenerationMode = "incremental"
)

const (
	DefaultBatchDays       = 15
	DefaultIncrementalDays = 365
)

type Config struct {
	Mode    GenerationMode
	MaxDays int
}

// NewConfig normalizes a mode/cap pair, falling back to the mode's default
// cap when maxDays is not positive.
func NewConfig(mode GenerationMode, maxDays int) Config {
	if mode != ModeBatch {
		mode = ModeIncremental
	}
	if maxDays <= 0 {
		if mode == ModeBatch {
			maxDays = DefaultBatchDays
		} else {
			maxDays = DefaultIncrementalDays
		}
	}
	return Config{Mode: mode, MaxDays: maxDays}
}

package encoder

import "github.com/edtrack/exercise-xapi/internal/xapi"

// fallbackEncoder covers the default bucket and any widget type without a
// scoring encoder: a descriptive object with no interaction type or pattern,
// and a result carrying only success and duration.
type fallbackEncoder struct{}

func (fallbackEncoder) BuildObject(src Source) (xapi.Object, error) {
	return baseObject(src), nil
}

func (fallbackEncoder) BuildResult(_ xapi.Object, _ Source, _ Input, success bool, duration string) (xapi.Result, error) {
	return xapi.Result{Success: xapi.Bool(success), Duration: duration}, nil
}

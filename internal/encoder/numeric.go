package encoder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edtrack/exercise-xapi/internal/widget"
	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// numericEncoder handles input-number and numeric-input groups. The pattern is
// the authoring values of every widget in the group, in order, joined "[,]".
type numericEncoder struct{}

type numericOptions struct {
	Value   *json.Number `json:"value"`
	Answers []struct {
		Value  *json.Number `json:"value"`
		Status string       `json:"status"`
	} `json:"answers"`
}

type numericInput struct {
	CurrentValue string `json:"currentValue"`
}

func (numericEncoder) BuildObject(src Source) (xapi.Object, error) {
	values := make([]string, 0, len(src.Widgets))
	for _, w := range src.Widgets {
		v, ok := numericValue(w)
		if !ok {
			continue
		}
		values = append(values, v)
	}
	obj := baseObject(src)
	obj.Definition.InteractionType = "numeric"
	obj.Definition.CorrectResponsesPattern = []string{strings.Join(values, joinSep)}
	return obj, nil
}

// numericValue extracts a widget's authoring value: a plain options.value, or
// the first answer flagged correct for the answers-list shape.
func numericValue(w widget.Widget) (string, bool) {
	var opts numericOptions
	if err := json.Unmarshal(w.Options, &opts); err != nil {
		return "", false
	}
	if opts.Value != nil {
		return opts.Value.String(), true
	}
	for _, a := range opts.Answers {
		if a.Status == "correct" && a.Value != nil {
			return a.Value.String(), true
		}
	}
	return "", false
}

func (numericEncoder) BuildResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error) {
	if success {
		p, err := firstPattern(obj)
		if err != nil {
			return xapi.Result{}, err
		}
		return newResult(p, true, duration), nil
	}
	values := make([]string, 0, len(src.Widgets))
	for _, w := range src.Widgets {
		raw, ok := in[w.Key]
		if !ok {
			continue
		}
		var ni numericInput
		if err := json.Unmarshal(raw, &ni); err != nil {
			return xapi.Result{}, fmt.Errorf("numeric response for widget %s: %w", w.Key, err)
		}
		values = append(values, ni.CurrentValue)
	}
	return newResult(strings.Join(values, joinSep), false, duration), nil
}

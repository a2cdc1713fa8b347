package encoder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// expressionEncoder handles free-form expression entry. Each widget authors a
// set of accepted values; the pattern enumerates every combination across the
// group (cartesian product, group order), one combination per pattern entry.
type expressionEncoder struct{}

type expressionOptions struct {
	AnswerForms []struct {
		Value      string `json:"value"`
		Considered string `json:"considered"`
	} `json:"answerForms"`
}

type expressionInput struct {
	Value *string `json:"value"`
}

func (expressionEncoder) BuildObject(src Source) (xapi.Object, error) {
	sets := make([][]string, 0, len(src.Widgets))
	for _, w := range src.Widgets {
		var opts expressionOptions
		if err := json.Unmarshal(w.Options, &opts); err != nil {
			return xapi.Object{}, fmt.Errorf("expression widget %s has unreadable options: %w", w.Key, err)
		}
		var accepted []string
		for _, f := range opts.AnswerForms {
			if f.Considered == "correct" {
				accepted = append(accepted, f.Value)
			}
		}
		if len(accepted) == 0 {
			return xapi.Object{}, fmt.Errorf("expression widget %s has no correct answer forms", w.Key)
		}
		sets = append(sets, accepted)
	}
	if len(sets) == 0 {
		return xapi.Object{}, fmt.Errorf("expression group %s has no widgets", src.ActivityID)
	}

	obj := baseObject(src)
	obj.Definition.InteractionType = "fill-in"
	obj.Definition.CorrectResponsesPattern = combinations(sets)
	return obj, nil
}

// combinations enumerates the cartesian product of the accepted-value sets,
// each combination joined "[,]". Set order and value order are preserved, so
// the output is deterministic.
func combinations(sets [][]string) []string {
	out := []string{""}
	for i, set := range sets {
		next := make([]string, 0, len(out)*len(set))
		for _, prefix := range out {
			for _, v := range set {
				if i == 0 {
					next = append(next, v)
				} else {
					next = append(next, prefix+joinSep+v)
				}
			}
		}
		out = next
	}
	return out
}

func (expressionEncoder) BuildResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error) {
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
		var ei expressionInput
		if err := json.Unmarshal(raw, &ei); err != nil {
			return xapi.Result{}, fmt.Errorf("expression response for widget %s: %w", w.Key, err)
		}
		if ei.Value == nil {
			continue
		}
		values = append(values, *ei.Value)
	}
	return newResult(strings.Join(values, joinSep), false, duration), nil
}

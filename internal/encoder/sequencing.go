package encoder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// orderedInput is the live state for reorder-style widgets: the contents the
// user has arranged, in their current order.
type orderedInput struct {
	Current []string `json:"current"`
}

// ===== orderer =====

// ordererEncoder builds sequencing objects from an orderer's option bank and
// its authored correct order.
type ordererEncoder struct{}

type ordererOptions struct {
	Options []struct {
		Content string `json:"content"`
	} `json:"options"`
	CorrectOptions []struct {
		Content string `json:"content"`
	} `json:"correctOptions"`
}

func (ordererEncoder) BuildObject(src Source) (xapi.Object, error) {
	if len(src.Widgets) == 0 {
		return xapi.Object{}, fmt.Errorf("orderer group %s has no widgets", src.ActivityID)
	}
	var opts ordererOptions
	if err := json.Unmarshal(src.Widgets[0].Options, &opts); err != nil || len(opts.Options) == 0 {
		return xapi.Object{}, fmt.Errorf("orderer widget %s has no options", src.Widgets[0].Key)
	}

	choices := make([]xapi.Component, len(opts.Options))
	for i, o := range opts.Options {
		choices[i] = xapi.Component{
			ID:          fmt.Sprintf("choice%d", i+1),
			Description: localized(src.Language, o.Content),
		}
	}

	ids := make([]string, 0, len(opts.CorrectOptions))
	for _, c := range opts.CorrectOptions {
		if id := matchComponent(choices, src.Language, c.Content); id != "" {
			ids = append(ids, id)
		}
	}

	obj := baseObject(src)
	obj.Definition.InteractionType = "sequencing"
	obj.Definition.Choices = choices
	obj.Definition.CorrectResponsesPattern = []string{strings.Join(ids, joinSep)}
	return obj, nil
}

func (ordererEncoder) BuildResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error) {
	return sequencingResult(obj, src, in, success, duration)
}

// ===== sorter =====

// sorterEncoder builds sequencing objects from a sorter's authored correct
// order; the pattern is simply choice1..choiceN.
type sorterEncoder struct{}

type sorterOptions struct {
	Correct []string `json:"correct"`
}

func (sorterEncoder) BuildObject(src Source) (xapi.Object, error) {
	if len(src.Widgets) == 0 {
		return xapi.Object{}, fmt.Errorf("sorter group %s has no widgets", src.ActivityID)
	}
	var opts sorterOptions
	if err := json.Unmarshal(src.Widgets[0].Options, &opts); err != nil || len(opts.Correct) == 0 {
		return xapi.Object{}, fmt.Errorf("sorter widget %s has no correct order", src.Widgets[0].Key)
	}

	choices := make([]xapi.Component, len(opts.Correct))
	ids := make([]string, len(opts.Correct))
	for i, content := range opts.Correct {
		id := fmt.Sprintf("choice%d", i+1)
		choices[i] = xapi.Component{ID: id, Description: localized(src.Language, content)}
		ids[i] = id
	}

	obj := baseObject(src)
	obj.Definition.InteractionType = "sequencing"
	obj.Definition.Choices = choices
	obj.Definition.CorrectResponsesPattern = []string{strings.Join(ids, joinSep)}
	return obj, nil
}

func (sorterEncoder) BuildResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error) {
	return sequencingResult(obj, src, in, success, duration)
}

// sequencingResult maps the user's ordered contents back to choice ids by
// content equality; entries that match nothing are dropped.
func sequencingResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error) {
	if success {
		p, err := firstPattern(obj)
		if err != nil {
			return xapi.Result{}, err
		}
		return newResult(p, true, duration), nil
	}
	var ids []string
	for _, w := range src.Widgets {
		raw, ok := in[w.Key]
		if !ok {
			continue
		}
		var oi orderedInput
		if err := json.Unmarshal(raw, &oi); err != nil {
			return xapi.Result{}, fmt.Errorf("sequencing response for widget %s: %w", w.Key, err)
		}
		for _, content := range oi.Current {
			if id := matchComponent(obj.Definition.Choices, src.Language, content); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return newResult(strings.Join(ids, joinSep), false, duration), nil
}

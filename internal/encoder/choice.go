package encoder

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// ===== radio =====

// radioEncoder handles single and multi select choice widgets.
type radioEncoder struct{}

type radioOptions struct {
	Choices []struct {
		Content        string `json:"content"`
		Correct        bool   `json:"correct"`
		NoneOfTheAbove bool   `json:"isNoneOfTheAbove"`
	} `json:"choices"`
}

// noneOfTheAboveText stands in for the blank content a "none of the above"
// choice is authored with, so content matching still works.
const noneOfTheAboveText = "None of the above"

func (radioEncoder) BuildObject(src Source) (xapi.Object, error) {
	if len(src.Widgets) == 0 {
		return xapi.Object{}, fmt.Errorf("radio group %s has no widgets", src.ActivityID)
	}
	var opts radioOptions
	if err := json.Unmarshal(src.Widgets[0].Options, &opts); err != nil || len(opts.Choices) == 0 {
		return xapi.Object{}, fmt.Errorf("radio widget %s has no choices", src.Widgets[0].Key)
	}

	choices := make([]xapi.Component, len(opts.Choices))
	var correct []string
	for i, c := range opts.Choices {
		content := c.Content
		if c.NoneOfTheAbove && content == "" {
			content = noneOfTheAboveText
		}
		id := fmt.Sprintf("choice%d", i+1)
		choices[i] = xapi.Component{ID: id, Description: localized(src.Language, content)}
		if c.Correct {
			correct = append(correct, id)
		}
	}

	obj := baseObject(src)
	obj.Definition.InteractionType = "choice"
	obj.Definition.Choices = choices
	obj.Definition.CorrectResponsesPattern = []string{strings.Join(correct, joinSep)}
	return obj, nil
}

func (radioEncoder) BuildResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error) {
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
			return xapi.Result{}, fmt.Errorf("choice response for widget %s: %w", w.Key, err)
		}
		for _, content := range oi.Current {
			if content == "" {
				content = noneOfTheAboveText
			}
			if id := matchComponent(obj.Definition.Choices, src.Language, content); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return newResult(strings.Join(ids, joinSep), false, duration), nil
}

// ===== dropdown =====

// dropdownEncoder handles dropdown widgets; the live response is the selected
// 1-based index rather than the choice content.
type dropdownEncoder struct{}

type dropdownOptions struct {
	Choices []struct {
		Content string `json:"content"`
		Correct bool   `json:"correct"`
	} `json:"choices"`
}

type dropdownInput struct {
	Selected int `json:"selected"`
}

func (dropdownEncoder) BuildObject(src Source) (xapi.Object, error) {
	if len(src.Widgets) == 0 {
		return xapi.Object{}, fmt.Errorf("dropdown group %s has no widgets", src.ActivityID)
	}
	var opts dropdownOptions
	if err := json.Unmarshal(src.Widgets[0].Options, &opts); err != nil || len(opts.Choices) == 0 {
		return xapi.Object{}, fmt.Errorf("dropdown widget %s has no choices", src.Widgets[0].Key)
	}

	choices := make([]xapi.Component, len(opts.Choices))
	var correct string
	for i, c := range opts.Choices {
		id := fmt.Sprintf("choice%d", i+1)
		choices[i] = xapi.Component{ID: id, Description: localized(src.Language, c.Content)}
		if c.Correct && correct == "" {
			correct = id
		}
	}

	obj := baseObject(src)
	obj.Definition.InteractionType = "choice"
	obj.Definition.Choices = choices
	obj.Definition.CorrectResponsesPattern = []string{correct}
	return obj, nil
}

func (dropdownEncoder) BuildResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error) {
	if success {
		p, err := firstPattern(obj)
		if err != nil {
			return xapi.Result{}, err
		}
		return newResult(p, true, duration), nil
	}
	response := ""
	for _, w := range src.Widgets {
		raw, ok := in[w.Key]
		if !ok {
			continue
		}
		var di dropdownInput
		if err := json.Unmarshal(raw, &di); err != nil {
			return xapi.Result{}, fmt.Errorf("dropdown response for widget %s: %w", w.Key, err)
		}
		if di.Selected >= 1 && di.Selected <= len(obj.Definition.Choices) {
			response = obj.Definition.Choices[di.Selected-1].ID
		}
	}
	return newResult(response, false, duration), nil
}

package encoder

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// Matching responses pair a source id with a target id as "src[.]tgt"; pairs
// join with "[,]". Sources are always "source{n}". Matcher targets are bare
// ordinals; categorizer targets are "target{n}".

// ===== matcher =====

// matcherEncoder handles two-column pairing widgets. The authoring left and
// right columns are aligned: left[i] pairs with right[i].
type matcherEncoder struct{}

type matcherOptions struct {
	Left  []string `json:"left"`
	Right []string `json:"right"`
}

func (matcherEncoder) BuildObject(src Source) (xapi.Object, error) {
	if len(src.Widgets) == 0 {
		return xapi.Object{}, fmt.Errorf("matcher group %s has no widgets", src.ActivityID)
	}
	var opts matcherOptions
	if err := json.Unmarshal(src.Widgets[0].Options, &opts); err != nil ||
		len(opts.Left) == 0 || len(opts.Left) != len(opts.Right) {
		return xapi.Object{}, fmt.Errorf("matcher widget %s has no aligned columns", src.Widgets[0].Key)
	}

	sources := make([]xapi.Component, len(opts.Left))
	targets := make([]xapi.Component, len(opts.Right))
	pairs := make([]string, len(opts.Left))
	for i := range opts.Left {
		sources[i] = xapi.Component{
			ID:          fmt.Sprintf("source%d", i+1),
			Description: localized(src.Language, opts.Left[i]),
		}
		targets[i] = xapi.Component{
			ID:          strconv.Itoa(i + 1),
			Description: localized(src.Language, opts.Right[i]),
		}
		pairs[i] = sources[i].ID + pairSep + targets[i].ID
	}

	obj := baseObject(src)
	obj.Definition.InteractionType = "matching"
	obj.Definition.Source = sources
	obj.Definition.Target = targets
	obj.Definition.CorrectResponsesPattern = []string{strings.Join(pairs, joinSep)}
	return obj, nil
}

func (matcherEncoder) BuildResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error) {
	if success {
		p, err := firstPattern(obj)
		if err != nil {
			return xapi.Result{}, err
		}
		return newResult(p, true, duration), nil
	}
	// The user reorders the right column; position i pairs with source{i+1}.
	var pairs []string
	for _, w := range src.Widgets {
		raw, ok := in[w.Key]
		if !ok {
			continue
		}
		var oi orderedInput
		if err := json.Unmarshal(raw, &oi); err != nil {
			return xapi.Result{}, fmt.Errorf("matcher response for widget %s: %w", w.Key, err)
		}
		for i, content := range oi.Current {
			if i >= len(obj.Definition.Source) {
				break
			}
			if tgt := matchComponent(obj.Definition.Target, src.Language, content); tgt != "" {
				pairs = append(pairs, obj.Definition.Source[i].ID+pairSep+tgt)
			}
		}
	}
	return newResult(strings.Join(pairs, joinSep), false, duration), nil
}

// ===== categorizer =====

// categorizerEncoder handles item-into-category widgets. values[i] holds the
// authored category index for item i.
type categorizerEncoder struct{}

type categorizerOptions struct {
	Items      []string `json:"items"`
	Categories []string `json:"categories"`
	Values     []int    `json:"values"`
}

type categorizerInput struct {
	// Values holds the chosen category label for each item, in item order.
	Values []string `json:"values"`
}

func (categorizerEncoder) BuildObject(src Source) (xapi.Object, error) {
	if len(src.Widgets) == 0 {
		return xapi.Object{}, fmt.Errorf("categorizer group %s has no widgets", src.ActivityID)
	}
	var opts categorizerOptions
	if err := json.Unmarshal(src.Widgets[0].Options, &opts); err != nil ||
		len(opts.Items) == 0 || len(opts.Categories) == 0 || len(opts.Values) != len(opts.Items) {
		return xapi.Object{}, fmt.Errorf("categorizer widget %s has incomplete authoring data", src.Widgets[0].Key)
	}

	sources := make([]xapi.Component, len(opts.Items))
	for i, item := range opts.Items {
		sources[i] = xapi.Component{
			ID:          fmt.Sprintf("source%d", i+1),
			Description: localized(src.Language, item),
		}
	}
	targets := make([]xapi.Component, len(opts.Categories))
	for i, cat := range opts.Categories {
		targets[i] = xapi.Component{
			ID:          fmt.Sprintf("target%d", i+1),
			Description: localized(src.Language, cat),
		}
	}
	pairs := make([]string, len(opts.Items))
	for i, v := range opts.Values {
		if v < 0 || v >= len(targets) {
			return xapi.Object{}, fmt.Errorf("categorizer widget %s: item %d points at category %d", src.Widgets[0].Key, i, v)
		}
		pairs[i] = sources[i].ID + pairSep + targets[v].ID
	}

	obj := baseObject(src)
	obj.Definition.InteractionType = "matching"
	obj.Definition.Source = sources
	obj.Definition.Target = targets
	obj.Definition.CorrectResponsesPattern = []string{strings.Join(pairs, joinSep)}
	return obj, nil
}

func (categorizerEncoder) BuildResult(obj xapi.Object, src Source, in Input, success bool, duration string) (xapi.Result, error) {
	if success {
		p, err := firstPattern(obj)
		if err != nil {
			return xapi.Result{}, err
		}
		return newResult(p, true, duration), nil
	}
	var pairs []string
	for _, w := range src.Widgets {
		raw, ok := in[w.Key]
		if !ok {
			continue
		}
		var ci categorizerInput
		if err := json.Unmarshal(raw, &ci); err != nil {
			return xapi.Result{}, fmt.Errorf("categorizer response for widget %s: %w", w.Key, err)
		}
		for i, label := range ci.Values {
			if i >= len(obj.Definition.Source) {
				break
			}
			if tgt := matchComponent(obj.Definition.Target, src.Language, label); tgt != "" {
				pairs = append(pairs, obj.Definition.Source[i].ID+pairSep+tgt)
			}
		}
	}
	return newResult(strings.Join(pairs, joinSep), false, duration), nil
}

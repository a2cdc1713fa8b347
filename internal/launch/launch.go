// Package launch resolves the xAPI launch parameters a packaged exercise is
// opened with into an immutable session configuration.
package launch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// ErrDisabled means the launch did not carry the required parameters. It is
// the single kill switch: a disabled session never sends a statement.
var ErrDisabled = errors.New("launch: telemetry disabled, missing endpoint/auth/actor")

// Params are the raw launch query parameters.
type Params struct {
	Endpoint       string
	Auth           string
	ActorJSON      string
	Registration   string
	ActivityPlatfm string
	Language       string
	Grouping       string
}

// ParseQuery extracts launch parameters from a page query string.
// Values arrive URL-encoded; url.ParseQuery already decodes them.
func ParseQuery(rawQuery string) (Params, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Params{}, fmt.Errorf("launch: parse query: %w", err)
	}
	return Params{
		Endpoint:       q.Get("endpoint"),
		Auth:           q.Get("auth"),
		ActorJSON:      q.Get("actor"),
		Registration:   q.Get("registration"),
		ActivityPlatfm: q.Get("activity_platform"),
		Language:       q.Get("Accept-Language"),
		Grouping:       q.Get("grouping"),
	}, nil
}

// Config is the immutable per-session configuration.
type Config struct {
	Endpoint     string
	AuthToken    string
	Actor        xapi.Actor
	Registration string
	Platform     string
	// Language is the resolved working language used for localization.
	Language string
	// LaunchLanguage is the Accept-Language parameter exactly as launched;
	// only an explicitly launched language is echoed into statement context.
	LaunchLanguage string
	Grouping       string

	// Activity is the exercise's own activity object, from the descriptor.
	Activity xapi.Object
}

// Descriptor is the activity descriptor document placed next to the packaged
// content (xapiobject.json). firstNameLang preserves the serialized order of
// the name map, which Go maps discard.
type Descriptor struct {
	ID            string          `json:"id"`
	ObjectType    string          `json:"objectType,omitempty"`
	Definition    xapi.Definition `json:"definition"`
	firstNameLang string
}

func (d *Descriptor) UnmarshalJSON(data []byte) error {
	type plain Descriptor
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Descriptor(p)
	d.firstNameLang = firstNameKey(data)
	return nil
}

// firstNameKey walks the raw document to the first key of definition.name.
func firstNameKey(data []byte) string {
	var doc struct {
		Definition struct {
			Name json.RawMessage `json:"name"`
		} `json:"definition"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || len(doc.Definition.Name) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(doc.Definition.Name))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}
	tok, err := dec.Token()
	if err != nil {
		return ""
	}
	key, _ := tok.(string)
	return key
}

// Resolver builds session configs from launch parameters plus the fetched
// activity descriptor.
type Resolver struct {
	HTTP *http.Client
}

func NewResolver() *Resolver {
	return &Resolver{HTTP: &http.Client{Timeout: 15 * time.Second}}
}

// Resolve validates the launch parameters, fetches the descriptor from
// descriptorURL and assembles the Config. A missing endpoint/auth/actor
// triple or a failed fetch yields ErrDisabled-wrapped errors; the caller logs
// and runs with telemetry off.
func (r *Resolver) Resolve(ctx context.Context, p Params, descriptorURL string) (Config, error) {
	if p.Endpoint == "" || p.Auth == "" || p.ActorJSON == "" {
		return Config{}, ErrDisabled
	}
	var actor xapi.Actor
	if err := json.Unmarshal([]byte(p.ActorJSON), &actor); err != nil {
		return Config{}, fmt.Errorf("%w: bad actor json: %v", ErrDisabled, err)
	}

	desc, err := r.fetchDescriptor(ctx, descriptorURL)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrDisabled, err)
	}

	objectType := desc.ObjectType
	if objectType == "" {
		objectType = "Activity"
	}

	return Config{
		Endpoint:       p.Endpoint,
		AuthToken:      p.Auth,
		Actor:          actor,
		Registration:   p.Registration,
		Platform:       p.ActivityPlatfm,
		Language:       resolveLanguage(p.Language, desc),
		LaunchLanguage: p.Language,
		Grouping:       p.Grouping,
		Activity: xapi.Object{
			ID:         desc.ID,
			ObjectType: objectType,
			Definition: desc.Definition,
		},
	}, nil
}

func (r *Resolver) fetchDescriptor(ctx context.Context, descriptorURL string) (Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, descriptorURL, nil)
	if err != nil {
		return Descriptor{}, fmt.Errorf("fetch descriptor: %v", err)
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return Descriptor{}, fmt.Errorf("fetch descriptor: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return Descriptor{}, fmt.Errorf("fetch descriptor: %s", resp.Status)
	}
	var desc Descriptor
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return Descriptor{}, fmt.Errorf("decode descriptor: %v", err)
	}
	if desc.ID == "" {
		return Descriptor{}, errors.New("descriptor has no activity id")
	}
	return desc, nil
}

// resolveLanguage picks the session language: the explicit Accept-Language
// parameter wins, then the descriptor's first name translation, then "en".
func resolveLanguage(explicit string, desc Descriptor) string {
	if explicit != "" {
		return explicit
	}
	if desc.firstNameLang != "" {
		return desc.firstNameLang
	}
	return "en"
}

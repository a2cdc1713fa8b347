// Package descriptor produces the activity descriptor files the packaging
// pipeline places beside packaged content: xapiobject.json, which the engine
// fetches at launch, and tincan.xml for stores that discover activities the
// TinCan way.
package descriptor

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edtrack/exercise-xapi/internal/launch"
	"github.com/edtrack/exercise-xapi/internal/xapi"
)

const (
	ObjectFileName = "xapiobject.json"
	TinCanFileName = "tincan.xml"
	IndexFileName  = "index.html"
)

// Meta is the content metadata a descriptor is built from.
type Meta struct {
	ActivityID  string
	Title       string
	Description string
	Lang        string
}

// Build assembles the descriptor document for the content metadata.
func Build(m Meta) (launch.Descriptor, error) {
	if m.ActivityID == "" {
		return launch.Descriptor{}, fmt.Errorf("descriptor: activity id required")
	}
	lang := m.Lang
	if lang == "" {
		lang = "en"
	}
	return launch.Descriptor{
		ID: m.ActivityID,
		Definition: xapi.Definition{
			Name:        map[string]string{lang: m.Title},
			Description: map[string]string{lang: m.Description},
			Type:        xapi.ActivityTypeModule,
		},
	}, nil
}

// tincan mirrors the projecttincan.com activity manifest schema.
type tincan struct {
	XMLName    xml.Name `xml:"tincan"`
	Namespace  string   `xml:"xmlns,attr"`
	Activities struct {
		Activity tincanActivity `xml:"activity"`
	} `xml:"activities"`
}

type tincanActivity struct {
	ID          string          `xml:"id,attr"`
	Type        string          `xml:"type,attr"`
	Name        string          `xml:"name"`
	Description tincanLocalized `xml:"description"`
	Launch      tincanLocalized `xml:"launch"`
}

type tincanLocalized struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

// WriteFiles writes xapiobject.json and tincan.xml into contentDir.
func WriteFiles(contentDir string, m Meta) error {
	desc, err := Build(m)
	if err != nil {
		return err
	}
	objJSON, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("descriptor: marshal object: %w", err)
	}
	if err := os.WriteFile(filepath.Join(contentDir, ObjectFileName), objJSON, 0o644); err != nil {
		return fmt.Errorf("descriptor: write %s: %w", ObjectFileName, err)
	}

	lang := m.Lang
	if lang == "" {
		lang = "en"
	}
	tc := tincan{Namespace: "http://projecttincan.com/tincan.xsd"}
	tc.Activities.Activity = tincanActivity{
		ID:          m.ActivityID,
		Type:        xapi.ActivityTypeModule,
		Name:        m.Title,
		Description: tincanLocalized{Lang: lang, Value: m.Description},
		Launch:      tincanLocalized{Lang: lang, Value: IndexFileName},
	}
	tcXML, err := xml.MarshalIndent(tc, "", "  ")
	if err != nil {
		return fmt.Errorf("descriptor: marshal tincan: %w", err)
	}
	out := append([]byte(xml.Header), tcXML...)
	if err := os.WriteFile(filepath.Join(contentDir, TinCanFileName), out, 0o644); err != nil {
		return fmt.Errorf("descriptor: write %s: %w", TinCanFileName, err)
	}
	return nil
}

package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// ExtractMeta reads title, meta description and document language from the
// content's index.html.
func ExtractMeta(contentDir string) (Meta, error) {
	path := filepath.Join(contentDir, IndexFileName)
	f, err := os.Open(path)
	if err != nil {
		return Meta{}, fmt.Errorf("descriptor: open %s: %w", IndexFileName, err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return Meta{}, fmt.Errorf("descriptor: parse %s: %w", IndexFileName, err)
	}

	var m Meta
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html":
				if v, ok := attr(n, "lang"); ok {
					m.Lang = v
				}
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					m.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				if name, _ := attr(n, "name"); name == "description" {
					if content, ok := attr(n, "content"); ok {
						m.Description = content
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return m, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

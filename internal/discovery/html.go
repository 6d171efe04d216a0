package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// getAndParse fetches url and parses the body as HTML. Any status other than
// 200 is an error.
func getAndParse(ctx context.Context, client *http.Client, url string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", url, err)
	}

	return doc, nil
}

// walkNodeTree visits root and its descendants depth first.
func walkNodeTree(root *html.Node, fn func(node *html.Node)) {
	fn(root)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walkNodeTree(c, fn)
	}
}

// anchorTexts returns the text of every <a> element in document order, with
// surrounding space and a trailing slash removed. Duplicates are dropped.
func anchorTexts(doc *html.Node) []string {
	var out []string
	seen := make(map[string]bool)

	walkNodeTree(doc, func(node *html.Node) {
		if node.Type != html.ElementNode || node.Data != "a" {
			return
		}

		var b strings.Builder
		walkNodeTree(node, func(n *html.Node) {
			if n.Type == html.TextNode {
				b.WriteString(n.Data)
			}
		})

		text := strings.TrimSuffix(strings.TrimSpace(b.String()), "/")
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		out = append(out, text)
	})

	return out
}

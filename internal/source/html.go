package source

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// errSQLFailed marks an error banner rendered by phpMyAdmin (usually a bad query).
var errSQLFailed = errors.New("sql execution failed")

var resultTableClass = regexp.MustCompile(`table_results|dataTable|table-data`)

// extractToken finds the hidden <input name="token"> phpMyAdmin embeds in
// every page. The token must accompany every form post.
func extractToken(page string) (string, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("%w: parsing login page: %v", ErrUpstream, err)
	}

	var token string
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "input" && attr(n, "name") == "token" {
			token = attr(n, "value")
			return false
		}
		return true
	})

	if token == "" {
		return "", fmt.Errorf("%w: no token input found (phpMyAdmin version/path changed?)", ErrUpstream)
	}
	return token, nil
}

// parseResultTable scrapes the SQL results table into header-keyed row maps.
// A "alert ... danger" div means the query failed server-side; its text is
// surfaced in the error.
func parseResultTable(page string) ([]map[string]string, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing results page: %v", ErrUpstream, err)
	}

	if banner := findErrorBanner(root); banner != "" {
		return nil, fmt.Errorf("%w: %s", errSQLFailed, banner)
	}

	table := findResultTable(root)
	if table == nil {
		return nil, fmt.Errorf("%w: no results table found (phpMyAdmin structure changed?)", ErrUpstream)
	}

	var header []string
	var rows []map[string]string

	walk(table, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "tr" {
			return true
		}

		if header == nil {
			header = cellTexts(n, "th")
			if len(header) > 0 {
				return false // header row fully consumed
			}
			return true
		}

		cells := cellTexts(n, "td")
		if len(cells) == 0 {
			return false
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(cells) {
				row[h] = cells[i]
			}
		}
		rows = append(rows, row)
		return false
	})

	if header == nil {
		return nil, fmt.Errorf("%w: results table has no header row", ErrUpstream)
	}
	return rows, nil
}

func findErrorBanner(root *html.Node) string {
	var text string
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "div" {
			class := attr(n, "class")
			if strings.Contains(class, "alert") && strings.Contains(class, "danger") {
				text = strings.TrimSpace(nodeText(n))
				return false
			}
		}
		return true
	})
	return text
}

func findResultTable(root *html.Node) *html.Node {
	var table *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "table" && resultTableClass.MatchString(attr(n, "class")) {
			table = n
			return false
		}
		return true
	})
	return table
}

// cellTexts collects the trimmed text of tr's direct and nested cells of the
// given tag ("th" or "td").
func cellTexts(tr *html.Node, tag string) []string {
	var texts []string
	walk(tr, func(n *html.Node) bool {
		if n != tr && n.Type == html.ElementNode && n.Data == tag {
			texts = append(texts, strings.TrimSpace(nodeText(n)))
			return false
		}
		return true
	})
	return texts
}

// attr returns the value of the named attribute, or "" if absent.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

// walk runs fn over the tree rooted at n in document order.
// fn returning false prunes the node's subtree.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

package analyze

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlExtract is what analyzeHTML pulls out of a parsed document before
// tokenizing (spec.md §4.4 "html").
type htmlExtract struct {
	Title       string
	Description string
	Text        string
}

var skipTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Svg:    true,
}

func extractHTML(body []byte) htmlExtract {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return htmlExtract{}
	}

	var out htmlExtract
	var textBuf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			return
		case html.ElementNode:
			if skipTags[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Title && out.Title == "" {
				out.Title = strings.TrimSpace(textContent(n))
				return
			}
			if n.DataAtom == atom.Meta {
				name := attr(n, "name")
				property := attr(n, "property")
				content := attr(n, "content")
				switch {
				case strings.EqualFold(name, "description") && out.Description == "":
					out.Description = content
				case strings.EqualFold(property, "og:title") && out.Title == "":
					out.Title = content
				case strings.EqualFold(name, "twitter:description") && out.Description == "":
					out.Description = content
				}
			}
		case html.TextNode:
			textBuf.WriteString(n.Data)
			textBuf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	out.Text = textBuf.String()
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

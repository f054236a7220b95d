package render

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// declarationRe matches a CSS property-value pair.
var declarationRe = regexp.MustCompile(`(?i)^\s*([\w-]+)\s*:\s*(.*?)\s*;?\s*$`)

// style is the part of an element's computed style that affects pagination.
type style struct {
	hidden      bool
	breakBefore bool
	breakAfter  bool
}

func (s *style) apply(property, value string) {
	value = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important")))
	switch strings.ToLower(property) {
	case "display":
		s.hidden = value == "none"
	case "page-break-before", "break-before":
		s.breakBefore = isPageBreak(value)
	case "page-break-after", "break-after":
		s.breakAfter = isPageBreak(value)
	}
}

func isPageBreak(value string) bool {
	switch value {
	case "always", "page", "left", "right", "recto", "verso":
		return true
	}
	return false
}

// selector is a compound selector of type, ID and classes. Selectors with
// combinators, attributes or pseudo-classes are not supported.
type selector struct {
	tag     string
	id      string
	classes []string
}

func (s selector) matches(n *html.Node) bool {
	if s.tag != "" && s.tag != "*" && !strings.EqualFold(s.tag, n.Data) {
		return false
	}
	if s.id != "" && attr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, c := range s.classes {
			if !slices.Contains(have, c) {
				return false
			}
		}
	}
	return true
}

type styleRule struct {
	selectors []selector
	decls     [][2]string
}

// styleSheet holds the rules of a content document that change layout.
type styleSheet struct {
	rules []styleRule
}

// parseStyleSheet reads the rules of css with supported selectors and
// layout declarations. At-rules are skipped with their blocks.
func parseStyleSheet(css string) styleSheet {
	var sheet styleSheet
	css = stripComments(css)
	i := 0
	for i < len(css) {
		open := strings.IndexByte(css[i:], '{')
		if open < 0 {
			break
		}
		open += i
		prelude := strings.TrimSpace(css[i:open])
		end := matchingBrace(css, open)
		body := css[open+1 : end]
		i = min(end+1, len(css))

		if strings.HasPrefix(prelude, "@") {
			continue
		}
		sels := parseSelectors(prelude)
		decls := parseDeclarations(body)
		if len(sels) == 0 || len(decls) == 0 {
			continue
		}
		sheet.rules = append(sheet.rules, styleRule{selectors: sels, decls: decls})
	}
	return sheet
}

// add appends the rules of other, which take precedence.
func (s *styleSheet) add(other styleSheet) {
	s.rules = append(s.rules, other.rules...)
}

// styleOf returns the style of n: matching rules in order, then the inline
// style attribute. The hidden attribute hides the element.
func (s styleSheet) styleOf(n *html.Node) style {
	var st style
	for _, r := range s.rules {
		for _, sel := range r.selectors {
			if sel.matches(n) {
				for _, d := range r.decls {
					st.apply(d[0], d[1])
				}
				break
			}
		}
	}
	for _, d := range parseDeclarations(attr(n, "style")) {
		st.apply(d[0], d[1])
	}
	if hasAttr(n, "hidden") {
		st.hidden = true
	}
	return st
}

func parseSelectors(prelude string) []selector {
	var out []selector
	for _, part := range strings.Split(prelude, ",") {
		if sel, ok := parseSelector(strings.TrimSpace(part)); ok {
			out = append(out, sel)
		}
	}
	return out
}

func parseSelector(s string) (selector, bool) {
	if s == "" || strings.ContainsAny(s, " \t\n>+~[:") {
		return selector{}, false
	}
	var sel selector
	for s != "" {
		next := strings.IndexAny(s[1:], ".#")
		token := s
		if next >= 0 {
			token, s = s[:next+1], s[next+1:]
		} else {
			s = ""
		}
		switch token[0] {
		case '.':
			if len(token) == 1 {
				return selector{}, false
			}
			sel.classes = append(sel.classes, token[1:])
		case '#':
			if len(token) == 1 {
				return selector{}, false
			}
			sel.id = token[1:]
		default:
			sel.tag = token
		}
	}
	return sel, true
}

// parseDeclarations splits a declaration block into property-value pairs.
func parseDeclarations(block string) [][2]string {
	var out [][2]string
	i := 0
	for i < len(block) {
		end := findDeclarationEnd(block, i)
		if m := declarationRe.FindStringSubmatch(strings.TrimSpace(block[i:end])); m != nil {
			out = append(out, [2]string{m[1], m[2]})
		}
		i = end + 1
	}
	return out
}

// findDeclarationEnd finds the end of a CSS declaration starting at pos.
// It handles string literals inside values (e.g., content: "...").
func findDeclarationEnd(css string, pos int) int {
	for i := pos; i < len(css); i++ {
		switch css[i] {
		case ';', '{', '}':
			return i
		case '"', '\'':
			quote := css[i]
			i++
			for i < len(css) {
				if css[i] == '\\' {
					i++
				} else if css[i] == quote {
					break
				}
				i++
			}
		}
	}
	return len(css)
}

func matchingBrace(css string, open int) int {
	depth := 0
	for i := open; i < len(css); i++ {
		switch css[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(css)
}

func stripComments(css string) string {
	var sb strings.Builder
	for {
		start := strings.Index(css, "/*")
		if start < 0 {
			sb.WriteString(css)
			break
		}
		sb.WriteString(css[:start])
		end := strings.Index(css[start+2:], "*/")
		if end < 0 {
			break
		}
		css = css[start+2+end+2:]
	}
	return sb.String()
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

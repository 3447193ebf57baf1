// Package markdown renders the small markdown subset answers use into styled,
// sanitized HTML.
package markdown

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	classH1        = "text-2xl font-bold mt-6 mb-4 text-foreground"
	classH2        = "text-xl font-bold mt-5 mb-3 text-foreground"
	classH3        = "text-lg font-bold mt-4 mb-2 text-foreground"
	classList      = "list-disc space-y-1 my-2 ml-4"
	classListItem  = "mb-1 text-foreground"
	classParagraph = "mb-3 leading-relaxed text-foreground"
	classStrong    = "font-semibold"

	// ListOpen and ListClose delimit every list the renderer emits.
	ListOpen  = `<ul class="` + classList + `">`
	ListClose = `</ul>`
)

var (
	headingLine = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	listLine    = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.)\s+(.*)$`)
	strongEm    = regexp.MustCompile(`\*\*\*([^*\n]+?)\*\*\*`)
	boldSpan    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicSpan  = regexp.MustCompile(`\*([^*<>\n]+?)\*`)
	classValue  = regexp.MustCompile(`^[a-z0-9 \-]+$`)

	headingClasses = map[int]string{1: classH1, 2: classH2, 3: classH3}
)

// Renderer converts answer text line by line. It keeps no state between calls
// and is safe for concurrent use.
type Renderer struct {
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	p := bluemonday.NewPolicy()
	p.AllowElements("h1", "h2", "h3", "ul", "li", "p", "strong", "em")
	p.AllowAttrs("class").Matching(classValue).OnElements("h1", "h2", "h3", "ul", "li", "p", "strong")
	return &Renderer{policy: p}
}

// Render returns sanitized HTML for text.
func (r *Renderer) Render(text string) string {
	return r.policy.Sanitize(renderBlocks(text))
}

type blockState struct {
	out       []string
	paragraph []string
	inList    bool
}

func (s *blockState) flushParagraph() {
	if len(s.paragraph) == 0 {
		return
	}
	s.out = append(s.out, `<p class="`+classParagraph+`">`+inline(strings.Join(s.paragraph, " "))+`</p>`)
	s.paragraph = s.paragraph[:0]
}

func (s *blockState) closeList() {
	if s.inList {
		s.out = append(s.out, ListClose)
		s.inList = false
	}
}

func renderBlocks(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	s := &blockState{}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			s.flushParagraph()
			s.closeList()

		case headingLine.MatchString(line):
			m := headingLine.FindStringSubmatch(line)
			s.flushParagraph()
			s.closeList()
			level := len(m[1])
			tag := "h" + string(rune('0'+level))
			s.out = append(s.out, "<"+tag+` class="`+headingClasses[level]+`">`+inline(m[2])+"</"+tag+">")

		case listLine.MatchString(raw):
			m := listLine.FindStringSubmatch(raw)
			s.flushParagraph()
			if !s.inList {
				s.out = append(s.out, ListOpen)
				s.inList = true
			}
			s.out = append(s.out, `<li class="`+classListItem+`">`+inline(strings.TrimSpace(m[1]))+`</li>`)

		default:
			s.closeList()
			s.paragraph = append(s.paragraph, line)
		}
	}

	s.flushParagraph()
	s.closeList()

	return strings.Join(s.out, "\n")
}

// inline escapes text and substitutes bold before italic so ** is never read as two *.
// Italic spans never cross a tag emitted by an earlier pass.
func inline(text string) string {
	text = html.EscapeString(text)
	text = strongEm.ReplaceAllString(text, `<strong class="`+classStrong+`"><em>$1</em></strong>`)
	text = boldSpan.ReplaceAllString(text, `<strong class="`+classStrong+`">$1</strong>`)
	return italicSpan.ReplaceAllString(text, `<em>$1</em>`)
}

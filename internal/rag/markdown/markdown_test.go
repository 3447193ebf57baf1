package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_ListThenParagraph(t *testing.T) {
	got := NewRenderer().Render("- a\n- b\n\ntext")

	want := strings.Join([]string{
		ListOpen,
		`<li class="mb-1 text-foreground">a</li>`,
		`<li class="mb-1 text-foreground">b</li>`,
		ListClose,
		`<p class="mb-3 leading-relaxed text-foreground">text</p>`,
	}, "\n")

	assert.Equal(t, want, got)
}

func TestRender_Blocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:  "headings by depth",
			input: "# One\n## Two\n### Three",
			contains: []string{
				`<h1 class="text-2xl font-bold mt-6 mb-4 text-foreground">One</h1>`,
				`<h2 class="text-xl font-bold mt-5 mb-3 text-foreground">Two</h2>`,
				`<h3 class="text-lg font-bold mt-4 mb-2 text-foreground">Three</h3>`,
			},
		},
		{
			name:     "numbered and plus bullets",
			input:    "1. first\n+ second",
			contains: []string{`>first</li>`, `>second</li>`},
		},
		{
			name:     "paragraph lines joined",
			input:    "line one\nline two",
			contains: []string{`<p class="mb-3 leading-relaxed text-foreground">line one line two</p>`},
		},
		{
			name:  "bold and italic",
			input: "**Bacterial** and *viral* causes",
			contains: []string{
				`<strong class="font-semibold">Bacterial</strong>`,
				`<em>viral</em>`,
			},
		},
		{
			name:     "emphasis inside list item",
			input:    "* **Anthrax**: sudden death",
			contains: []string{`<li class="mb-1 text-foreground"><strong class="font-semibold">Anthrax</strong>: sudden death</li>`},
		},
		{
			name:     "heading closes open list",
			input:    "- a\n## Next",
			contains: []string{ListClose + "\n<h2"},
		},
		{
			name:     "plain text closes open list",
			input:    "- a\nafter",
			contains: []string{ListClose + "\n<p"},
		},
	}

	r := NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Render(tt.input)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestRender_ListsAlwaysClosed(t *testing.T) {
	inputs := []string{
		"",
		"- only",
		"- a\n- b",
		"- a\n\n- b\n\n- c",
		"text\n- a\n# h\n- b\ntext\n- c",
		"1. x\r\n2. y\r\n",
		"#### not a heading\n- a",
	}

	r := NewRenderer()
	for _, in := range inputs {
		got := r.Render(in)
		assert.Equal(t, strings.Count(got, ListOpen), strings.Count(got, ListClose), "input %q", in)
	}
}

func TestRender_SanitizesMarkup(t *testing.T) {
	got := NewRenderer().Render(`<script>alert(1)</script> and <img src=x onerror=alert(1)>`)

	assert.NotContains(t, got, "<script>")
	assert.NotContains(t, got, "<img")
	assert.True(t, strings.HasPrefix(got, `<p class="mb-3 leading-relaxed text-foreground">`))
}

func TestRender_EmptyInput(t *testing.T) {
	assert.Equal(t, "", NewRenderer().Render("\n\n"))
}

func TestRender_NestedEmphasis(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bold italic",
			input: "***x***",
			want:  `<p class="mb-3 leading-relaxed text-foreground"><strong class="font-semibold"><em>x</em></strong></p>`,
		},
		{
			name:  "italic inside bold",
			input: "**a *b* c**",
			want:  `<p class="mb-3 leading-relaxed text-foreground"><strong class="font-semibold">a <em>b</em> c</strong></p>`,
		},
		{
			name:  "italic does not span tags",
			input: "**a *b** c*",
			want:  `<p class="mb-3 leading-relaxed text-foreground"><strong class="font-semibold">a *b</strong> c*</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRenderer().Render(tt.input))
		})
	}
}

package content

import (
	"errors"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const excerptLength = 200

var ErrEmpty = errors.New("content is empty after sanitizing")

// Processed holds a post after sanitizing. Title and Text are plain text,
// HTML is safe markup.
type Processed struct {
	Title   string
	HTML    string
	Text    string
	Excerpt string
}

// Handles HTML cleaning and excerpt extraction for post bodies.
type Processor struct {
	titlePolicy     *bluemonday.Policy
	htmlPolicy      *bluemonday.Policy
	stripTagsPolicy *bluemonday.Policy
}

func NewProcessor() *Processor {
	return &Processor{
		titlePolicy:     bluemonday.StrictPolicy(),
		htmlPolicy:      bluemonday.UGCPolicy(),       // Keeps formatting, drops scripts and handlers
		stripTagsPolicy: bluemonday.StripTagsPolicy(), // Plain text for excerpts
	}
}

// Process cleans a title and body. A body that sanitizes to nothing is rejected.
func (p *Processor) Process(title, body string) (*Processed, error) {
	cleanedHTML := strings.TrimSpace(p.htmlPolicy.Sanitize(body))
	if cleanedHTML == "" {
		return nil, ErrEmpty
	}
	text := p.PlainText(cleanedHTML)
	return &Processed{
		Title:   strings.TrimSpace(html.UnescapeString(p.titlePolicy.Sanitize(title))),
		HTML:    cleanedHTML,
		Text:    text,
		Excerpt: truncate(text),
	}, nil
}

// PlainText returns the visible text of body with whitespace collapsed.
func (p *Processor) PlainText(body string) string {
	return strings.Join(strings.Fields(html.UnescapeString(p.stripTagsPolicy.Sanitize(body))), " ")
}

// Excerpt returns up to excerptLength characters of plain text, cut on a word boundary.
func (p *Processor) Excerpt(body string) string {
	return truncate(p.PlainText(body))
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}

	runes := []rune(text)[:excerptLength]
	cut := len(runes)
	for i := len(runes) - 1; i > excerptLength/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsPunct) + "…"
}

// Length counts characters, not bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

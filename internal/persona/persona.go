// Package persona is the presentation layer: pure formatters that frame
// generated text as a persona take or a headline, and the persona rotation.
package persona

import (
	"fmt"
	"strings"

	"github.com/edgard/mediadesk/internal/config"
	"github.com/edgard/mediadesk/internal/text"
)

const (
	// cardLimit bounds the single-line text of a social-post card.
	cardLimit = 300
	// titleLimit is the exclusive upper bound on headline title length.
	titleLimit = 110
)

// Persona is a named presentation style.
type Persona struct {
	Name   string
	Style  string
	Weight float64
	// Handle, when set, renders the persona as a social-post card.
	Handle string
}

// FromConfig converts configured personas. Zero weights become 1.0.
func FromConfig(cfgs []config.PersonaConfig) []Persona {
	out := make([]Persona, 0, len(cfgs))
	for _, c := range cfgs {
		w := c.Weight
		if w == 0 {
			w = 1.0
		}
		out = append(out, Persona{Name: c.Name, Style: c.Style, Weight: w, Handle: c.Handle})
	}
	return out
}

// Format frames body in the persona's voice: a "{name} ({style}):" header
// line followed by the body, or a social-post card for personas with a handle.
func (p Persona) Format(body string) string {
	body = strings.TrimSpace(body)
	if p.Handle != "" {
		return p.card(body)
	}
	if p.Style == "" {
		return fmt.Sprintf("%s:\n%s", p.Name, body)
	}
	return fmt.Sprintf("%s (%s):\n%s", p.Name, p.Style, body)
}

// card renders "**name** — handle" over the text flattened to one line and
// cut to cardLimit runes.
func (p Persona) card(body string) string {
	line := strings.TrimSpace(strings.ReplaceAll(body, "\n", " "))
	if text.RuneLen(line) > cardLimit {
		line = strings.TrimRight(text.Truncate(line, cardLimit-3), " \t") + "…"
	}
	return fmt.Sprintf("**%s** — %s\n%s", p.Name, p.Handle, line)
}

// Headline treats the first non-empty line of generated as the headline and
// the rest as the body. The title is stripped of markdown markers, bolded and
// kept under titleLimit runes; the body follows after a blank line.
func Headline(generated string) string {
	lines := strings.Split(strings.TrimSpace(generated), "\n")
	if len(lines) == 0 {
		return ""
	}

	title := cleanTitle(lines[0])
	body := strings.TrimSpace(strings.Join(lines[1:], "\n"))

	if text.RuneLen(title) >= titleLimit {
		title = text.Ellipsize(title, titleLimit-1)
	}
	if title == "" {
		return body
	}

	out := "**" + title + "**"
	if body != "" {
		out += "\n\n" + body
	}
	return out
}

func cleanTitle(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#> ")
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "*_")
	line = strings.TrimSpace(line)
	lower := strings.ToLower(line)
	if strings.HasPrefix(lower, "headline:") {
		line = strings.TrimSpace(line[len("headline:"):])
	}
	return text.CollapseWhitespace(strings.Trim(line, `"“”`))
}

// Package action parses directive tags out of finalized assistant text and
// dispatches them against the simulated device, routing destructive
// directives through a confirmation gate.
package action

import (
	"regexp"
	"strings"
)

// Directive is a single machine-actionable command parsed from assistant text.
type Directive struct {
	Name string `json:"name"`
}

// tagPattern is the fixed directive grammar. Names are upper-case words
// joined by underscores.
var tagPattern = regexp.MustCompile(`\[ACTION:\s*([A-Z_]+)\]`)

// Scan extracts directives from text in left-to-right order and returns them
// together with the residual display text: the input with every tag removed
// and surrounding whitespace collapsed, so raw markup never reaches a
// user-facing transcript.
func Scan(text string) ([]Directive, string) {
	matches := tagPattern.FindAllStringSubmatch(text, -1)

	var directives []Directive
	for _, m := range matches {
		directives = append(directives, Directive{Name: m[1]})
	}

	display := tagPattern.ReplaceAllString(text, "")
	display = strings.Join(strings.Fields(display), " ")
	return directives, display
}

package keyframes

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Summary is what Validate found in a stylesheet.
type Summary struct {
	Bindings  int
	Keyframes int
	Blocks    int
}

// Validate parses css and checks that every binding rule names exactly one
// @keyframes rule and every @keyframes rule is bound exactly once.
func Validate(text string) (Summary, error) {
	sheet, err := parser.Parse(text)
	if err != nil {
		return Summary{}, fmt.Errorf("keyframes: parse stylesheet: %w", err)
	}

	var sum Summary
	bound := make(map[string]int)
	defined := make(map[string]int)
	for _, r := range sheet.Rules {
		switch {
		case r.Kind == css.AtRule && r.Name == "@keyframes":
			defined[r.Prelude]++
			sum.Keyframes++
			sum.Blocks += len(r.Rules)
		case r.Kind == css.QualifiedRule:
			for _, d := range r.Declarations {
				if d.Property != "animation" {
					continue
				}
				name, _, _ := strings.Cut(d.Value, " ")
				bound[name]++
				sum.Bindings++
			}
		}
	}

	for name, n := range bound {
		if n != 1 {
			return sum, fmt.Errorf("keyframes: animation %s bound %d times", name, n)
		}
		if defined[name] == 0 {
			return sum, fmt.Errorf("keyframes: animation %s bound but not defined", name)
		}
	}
	for name, n := range defined {
		if n != 1 {
			return sum, fmt.Errorf("keyframes: @keyframes %s defined %d times", name, n)
		}
		if bound[name] == 0 {
			return sum, fmt.Errorf("keyframes: @keyframes %s defined but not bound", name)
		}
	}
	return sum, nil
}

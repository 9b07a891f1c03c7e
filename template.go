package main

import (
	"maps"
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// expandMessage replaces {{key}} placeholders with values from params.
// When params has a non-empty "name", {{name}}, {{Name}} and {{NAME}} expand to
// its lower, title and upper case forms. Unknown placeholders are left as is.
func expandMessage(message string, params map[string]string) string {
	vars := params
	if name := params["name"]; name != "" {
		lower := cases.Lower(language.Und).String(name)
		vars = maps.Clone(params)
		vars["name"] = lower
		vars["Name"] = titleFirst(lower)
		vars["NAME"] = cases.Upper(language.Und).String(name)
	}
	if len(vars) == 0 {
		return message
	}
	return placeholderPattern.ReplaceAllStringFunc(message, func(m string) string {
		if v, ok := vars[m[2:len(m)-2]]; ok {
			return v
		}
		return m
	})
}

// titleFirst upper-cases only the first letter of s.
func titleFirst(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(s[:size]) + s[size:]
}

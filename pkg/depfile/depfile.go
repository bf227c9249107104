// Package depfile parses the Makefile-style dependency listings that C and
// C++ compilers print in -MM mode.
//
// Each logical line has the form
//
//	main.o: src/main.cpp include/a.h \
//	  include/b.h
//
// where the first prerequisite is the translation unit itself and the rest
// are the headers it includes.
//
// Example usage:
//
//	rules, err := depfile.ParseString(stdout)
//	if err != nil {
//	    return err
//	}
//	headers := depfile.Headers(rules, basePath)
package depfile

import (
	"io"
	"path/filepath"
	"strings"
)

// Rule is one logical dependency line.
type Rule struct {
	// Target is the name before the separator (usually the object file).
	Target string

	// Prerequisites lists the source first, then its headers.
	Prerequisites []string
}

// Source returns the translation unit of the rule, or "" if it has none.
func (r Rule) Source() string {
	if len(r.Prerequisites) == 0 {
		return ""
	}
	return r.Prerequisites[0]
}

// Headers returns the prerequisites after the source.
func (r Rule) Headers() []string {
	if len(r.Prerequisites) < 2 {
		return nil
	}
	return r.Prerequisites[1:]
}

// Parse reads every rule from r.
func Parse(r io.Reader) ([]Rule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseString(string(data))
}

// ParseString parses a complete dependency listing.
//
// A non-empty line without a target separator is a *ParseError wrapping
// ErrMissingSeparator.
func ParseString(s string) ([]Rule, error) {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\\\n", " ")

	var rules []Rule
	for i, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		sep := separator(line)
		if sep < 0 {
			return nil, &ParseError{Line: i + 1, Data: line, Err: ErrMissingSeparator}
		}

		rules = append(rules, Rule{
			Target:        strings.TrimSpace(line[:sep]),
			Prerequisites: fields(line[sep+1:]),
		})
	}
	return rules, nil
}

// Headers maps each rule's source to its headers, both resolved against
// base when relative. Rules without a source are skipped.
func Headers(rules []Rule, base string) map[string][]string {
	out := make(map[string][]string, len(rules))
	for _, rule := range rules {
		src := rule.Source()
		if src == "" {
			continue
		}

		hdrs := make([]string, 0, len(rule.Headers()))
		for _, hdr := range rule.Headers() {
			hdrs = append(hdrs, resolve(base, hdr))
		}
		out[resolve(base, src)] = hdrs
	}
	return out
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// separator returns the index of the first ':' that ends the target, that
// is one followed by whitespace or the end of the line. Drive letters
// (C:\...) are skipped that way.
func separator(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != ':' {
			continue
		}
		if i+1 == len(line) || line[i+1] == ' ' || line[i+1] == '\t' {
			return i
		}
	}
	return -1
}

// fields splits on unescaped blanks and undoes make's escapes.
func fields(s string) []string {
	var out []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && (s[i+1] == ' ' || s[i+1] == '#'):
			b.WriteByte(s[i+1])
			i++
		case c == '$' && i+1 < len(s) && s[i+1] == '$':
			b.WriteByte('$')
			i++
		case c == ' ' || c == '\t':
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return out
}

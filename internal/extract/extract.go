// Package extract pulls a JSON-shaped substring out of heterogeneous
// completion text. Models wrap structured output inconsistently: sometimes in
// a tagged fence, sometimes in a bare fence, sometimes inline with prose
// around it. Extraction is pure and deterministic; first strategy that
// matches wins.
package extract

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON indicates no strategy found a JSON object in the text. Callers
// treat this as a degraded-content signal, not a pipeline failure.
var ErrNoJSON = errors.New("no JSON object found in completion text")

const fence = "```"

// Extract returns the best JSON candidate found in raw completion text.
func Extract(raw string) (string, error) {
	for _, strategy := range []func(string) (string, bool){
		fencedTagged,
		fencedUntagged,
		largestBraceBlock,
		standaloneBlock,
	} {
		if s, ok := strategy(raw); ok {
			return s, nil
		}
	}
	return "", ErrNoJSON
}

// fencedTagged matches a fence explicitly tagged as structured data, e.g.
// ```json ... ```.
func fencedTagged(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	start := strings.Index(lower, fence+"json")
	if start < 0 {
		return "", false
	}
	body := raw[start+len(fence+"json"):]
	end := strings.Index(body, fence)
	if end < 0 {
		return "", false
	}
	inner := strings.TrimSpace(body[:end])
	if inner == "" {
		return "", false
	}
	return inner, true
}

// fencedUntagged matches any fence whose trimmed interior is brace-delimited.
func fencedUntagged(raw string) (string, bool) {
	rest := raw
	for {
		start := strings.Index(rest, fence)
		if start < 0 {
			return "", false
		}
		body := rest[start+len(fence):]
		// Skip the info string on the opening fence line.
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		end := strings.Index(body, fence)
		if end < 0 {
			return "", false
		}
		inner := strings.TrimSpace(body[:end])
		if strings.HasPrefix(inner, "{") && strings.HasSuffix(inner, "}") {
			return inner, true
		}
		rest = body[end+len(fence):]
	}
}

// largestBraceBlock returns the longest balanced {...} substring anywhere in
// the text. Brace depth tracking is string-aware so braces inside JSON string
// values do not desynchronize the scan.
func largestBraceBlock(raw string) (string, bool) {
	best := ""
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		if end := matchBrace(raw, i); end > i && end-i+1 > len(best) {
			best = raw[i : end+1]
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var standaloneRe = regexp.MustCompile(`(?m)^\s*\{[\s\S]*?^\s*\}\s*$`)

// standaloneBlock matches a {...} block whose braces sit on their own lines.
// Last resort: it fires only when brace matching failed, typically on
// truncated output where the largest-block scan found nothing balanced.
func standaloneBlock(raw string) (string, bool) {
	m := standaloneRe.FindString(raw)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(m), true
}

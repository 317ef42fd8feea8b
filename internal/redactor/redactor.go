// Package redactor masks session secrets and personal data in text shown to
// the operator: error messages quoting response bodies, debug output and
// the doctor report. Matches are replaced with deterministic placeholders
// like <COOKIE-9f86d081>, so equal values stay recognizable.
package redactor

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

type pattern struct {
	tag string
	re  *regexp.Regexp
	// group is the submatch to replace; 0 replaces the whole match.
	group int
}

// Order matters: specific patterns come before generic ones.
var patterns = []pattern{
	{tag: "COOKIE", re: regexp.MustCompile(`\b(?:EGG_SESS_ICONFONT|ctoken|EGG_SESS|cna|isg|tfstk)=([^;\s"&]+)`), group: 1},
	{tag: "CSRF", re: regexp.MustCompile(`(?i)\b(?:x-csrf-token|csrfToken)["'\s:=]+([A-Za-z0-9_-]{8,})`), group: 1},

	{tag: "AWS_KEY", re: regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{tag: "AWS_SECRET", re: regexp.MustCompile(`(?i)(?:aws_secret_access_key|secret_access_key|secretAccessKey)["'\s:=]+([A-Za-z0-9/+=]{40})`), group: 1},
	{tag: "GITHUB", re: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9_]{36,}\b`)},
	{tag: "BEARER", re: regexp.MustCompile(`\bBearer\s+[A-Za-z0-9_.-]{20,}`)},
	{tag: "URL_CREDS", re: regexp.MustCompile(`://[^/:@\s]+:[^/@\s]+@`)},

	{tag: "EMAIL", re: regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)},
	// Mainland China mobile numbers, the usual iconfont.cn login identity.
	{tag: "PHONE", re: regexp.MustCompile(`(?:\+?86[-\s]?)?\b1[3-9]\d{9}\b`)},

	{tag: "SECRET", re: regexp.MustCompile(`(?i)\b(?:password|secret|passwd)["'\s]*[=:]\s*["']?([^\s"',}]{4,})`), group: 1},
}

// placeholder returns <TAG-XXXXXXXX> with the first 4 bytes of the value's SHA-256.
func placeholder(tag, original string) string {
	hash := sha256.Sum256([]byte(original))
	return fmt.Sprintf("<%s-%x>", tag, hash[:4])
}

// Redact applies every pattern to s.
func Redact(s string) string {
	for _, p := range patterns {
		if p.group == 0 {
			s = p.re.ReplaceAllStringFunc(s, func(m string) string {
				return placeholder(p.tag, m)
			})
			continue
		}
		s = replaceGroup(s, p)
	}
	return s
}

func replaceGroup(s string, p pattern) string {
	var b strings.Builder
	last := 0
	for _, loc := range p.re.FindAllStringSubmatchIndex(s, -1) {
		start, end := loc[2*p.group], loc[2*p.group+1]
		if start < 0 {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(placeholder(p.tag, s[start:end]))
		last = end
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// Mask hides all but the first and last two characters of a secret value.
// Values of six characters or fewer are fully masked.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	r := []rune(value)
	if len(r) <= 6 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:2]) + strings.Repeat("*", len(r)-4) + string(r[len(r)-2:])
}

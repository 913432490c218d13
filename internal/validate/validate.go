// Package validate decides whether a raw candidate is a plausible real address.
//
// The check is an ordered cascade of hard rejects tuned for scraped page text, where
// most noise is asset file names, hash-like identifiers, and role accounts.
package validate

import (
	"regexp"
	"strings"
)

// Rule names the check that rejected a candidate.
type Rule string

const (
	RuleNone           Rule = ""
	RuleShape          Rule = "shape"
	RuleFileExtension  Rule = "file_extension"
	RuleLength         Rule = "length"
	RuleDots           Rule = "dots"
	RuleDigits         Rule = "digits"
	RuleSuspiciousWord Rule = "suspicious_word"
	RuleHex            Rule = "hex"
	RuleExcludedWord   Rule = "excluded_word"
)

// Limits used by the structural checks.
const (
	MaxLocalLength  = 64
	MaxDomainLength = 255
	MaxLocalDigits  = 8
	MinHexLength    = 8
)

// shapeRegex is stricter than the extraction pattern: no % or + in the local part.
var shapeRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var hexRegex = regexp.MustCompile(`^[a-f0-9]+$`)

var excludedWords = map[string]bool{
	"example": true, "test": true, "info": true, "noreply": true, "no-reply": true,
	"support": true, "contact": true, "webmaster": true, "postmaster": true,
	"abuse": true, "sales": true, "marketing": true,
}

var fileExtensions = []string{
	"png", "jpg", "jpeg", "gif", "bmp", "webp", "svg",
	"ico", "tiff", "pdf", "doc", "docx", "xls", "xlsx",
	"zip", "rar", "7z", "tar", "gz", "mp3", "mp4", "avi",
	"mov", "wmv", "css", "js", "json", "xml", "txt",
}

var suspiciousWords = []string{"temp", "spam"}

// Result is the verdict for one candidate and the rule that decided it.
type Result struct {
	Valid bool `json:"valid"`
	Rule  Rule `json:"rule,omitempty"`
}

// IsValid reports whether candidate passes every rule.
func IsValid(candidate string) bool {
	return Check(candidate).Valid
}

// Check runs the cascade and reports the first rule that rejected candidate.
// It never fails; malformed input is simply rejected.
func Check(candidate string) Result {
	if !shapeRegex.MatchString(candidate) {
		return reject(RuleShape)
	}

	lower := strings.ToLower(candidate)
	local, domain, _ := strings.Cut(lower, "@")

	for _, ext := range fileExtensions {
		suffix := "." + ext
		if strings.HasSuffix(domain, suffix) || strings.HasSuffix(local, suffix) {
			return reject(RuleFileExtension)
		}
	}

	if len(local) > MaxLocalLength || len(domain) > MaxDomainLength {
		return reject(RuleLength)
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") ||
		strings.Contains(local, "..") || strings.Contains(domain, "..") {
		return reject(RuleDots)
	}
	if countDigits(local) > MaxLocalDigits {
		return reject(RuleDigits)
	}
	for _, w := range suspiciousWords {
		if strings.Contains(local, w) {
			return reject(RuleSuspiciousWord)
		}
	}
	if len(local) >= MinHexLength && hexRegex.MatchString(local) {
		return reject(RuleHex)
	}

	if excludedWords[local] {
		return reject(RuleExcludedWord)
	}

	return Result{Valid: true}
}

func reject(rule Rule) Result {
	return Result{Valid: false, Rule: rule}
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// internal/emails/extractor.go
package emails

import (
	"regexp"
	"strings"
)

// Extraction limits mirroring what comment text realistically contains.
const (
	MinEmailLength = 6
	MaxEmailLength = 254
	MaxTLDLength   = 6
)

// emailPattern is deliberately permissive; candidates are narrowed by
// IsLikelyInvalid afterwards.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// deconcatTLDPattern inserts a boundary after a known TLD when it is glued
// directly to a following letter ("gmail.comJane"). The "co" TLD is excluded
// on purpose: including it would split every ".com" into ".co" + "m".
var deconcatTLDPattern = regexp.MustCompile(`\.(com|org|net|edu|gov|info|io|ai|in)([a-zA-Z])`)

var (
	whitespaceRun    = regexp.MustCompile(`[\r\n\t]+`)
	multiSpace       = regexp.MustCompile(`\s{2,}`)
	glueBeforeAt     = regexp.MustCompile(`([^\s])@`)
	spacesAroundAt   = regexp.MustCompile(`\s*@\s*`)
	phoneLikeLocal   = regexp.MustCompile(`^\d{8,}$`)
	allDigitLocal    = regexp.MustCompile(`^\d+$`)
	concatenatedTail = regexp.MustCompile(`\.(com|org|net|in|co|io|ai|edu)([a-zA-Z0-9]{2,})`)
	edgePunctuation  = regexp.MustCompile(`^[.,;:!?\s]+|[.,;:!?\s]+$`)
	mailtoSplit      = regexp.MustCompile(`(?i)mailto:`)
)

// mediaExtensions are file extensions that show up where a TLD should be
// when a filename or asset URL gets matched by the email pattern.
var mediaExtensions = map[string]bool{
	"png": true, "jpg": true, "gif": true, "svg": true, "mp4": true,
	"pdf": true, "zip": true, "js": true, "css": true,
}

// placeholderAddresses are throwaway addresses people type as examples.
var placeholderAddresses = map[string]bool{
	"test@test.com":       true,
	"example@example.com": true,
	"email@email.com":     true,
	"user@user.com":       true,
}

// NormalizeText prepares raw comment text for email extraction. Comment text
// arrives with author names and adjacent comments concatenated without
// delimiters, so TLD and @ boundaries are repaired before matching.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	s := whitespaceRun.ReplaceAllString(text, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	s = deconcatTLDPattern.ReplaceAllString(s, ".$1 $2")
	s = glueBeforeAt.ReplaceAllString(s, "$1 @")
	s = spacesAroundAt.ReplaceAllString(s, "@")
	return strings.TrimSpace(s)
}

// Normalize lowercases and trims a single email candidate, stripping leading
// and trailing punctuation. Returns "" when the candidate cannot be an email
// at all (no @, too long, media extension in TLD position).
func Normalize(email string) string {
	clean := edgePunctuation.ReplaceAllString(strings.ToLower(email), "")
	clean = strings.TrimSpace(clean)
	if !strings.Contains(clean, "@") || len(clean) > MaxEmailLength {
		return ""
	}
	if dot := strings.LastIndex(clean, "."); dot >= 0 && mediaExtensions[clean[dot+1:]] {
		return ""
	}
	return clean
}

// IsLikelyInvalid reports whether a normalized email is a fragment,
// concatenation artifact, or obvious placeholder. The rules exist because
// the upstream text routinely glues "name.971" fragments, author names, and
// asset URLs onto real addresses.
func IsLikelyInvalid(email string) bool {
	e := strings.TrimSpace(strings.ToLower(email))
	if e == "" {
		return true
	}
	at := strings.Index(e, "@")
	if at <= 0 || at >= len(e)-4 {
		return true
	}
	local, domain := e[:at], e[at+1:]
	if !strings.Contains(domain, ".") {
		return true
	}
	// "company.comJohnDoe" style: known TLD with alphanumeric glued on.
	if concatenatedTail.MatchString(domain) {
		return true
	}
	if allDigitLocal.MatchString(local) || len(local) < 2 {
		return true
	}
	if strings.Contains(local, "..") {
		return true
	}
	tld := domain[strings.LastIndex(domain, ".")+1:]
	if tld == "" || len(tld) > MaxTLDLength {
		return true
	}
	if strings.ContainsAny(e, " \t\n") {
		return true
	}
	return placeholderAddresses[e]
}

// Extract returns all unique validated emails in text, lowercased, in
// first-seen order. It is a pure function of its input: mailto targets are
// scanned first, then the regex pass over the normalized text.
func Extract(text string) []string {
	if text == "" {
		return nil
	}
	normalized := spacesAroundAt.ReplaceAllString(NormalizeText(text), "@")

	seen := make(map[string]bool)
	var out []string

	accept := func(candidate string) {
		e := Normalize(candidate)
		if e == "" || seen[e] || IsLikelyInvalid(e) {
			return
		}
		seen[e] = true
		out = append(out, e)
	}

	if strings.Contains(strings.ToLower(normalized), "mailto:") {
		parts := mailtoSplit.Split(normalized, -1)
		for _, part := range parts[1:] {
			target := splitAtAny(part, " \t?\"")
			if strings.Contains(target, "@") {
				accept(target)
			}
		}
	}

	for _, match := range emailPattern.FindAllString(normalized, -1) {
		local := match[:strings.Index(match, "@")]
		if phoneLikeLocal.MatchString(local) {
			continue
		}
		if len(match) < MinEmailLength || len(match) > MaxEmailLength {
			continue
		}
		accept(match)
	}
	return out
}

// splitAtAny returns s up to the first occurrence of any rune in cutset.
func splitAtAny(s, cutset string) string {
	if i := strings.IndexAny(s, cutset); i >= 0 {
		return s[:i]
	}
	return s
}

// ContainsEmailHint is the cheap pre-filter applied before running Extract
// on payload text: most comments carry no email at all.
func ContainsEmailHint(text string) bool {
	return strings.Contains(text, "@") || strings.Contains(text, "mailto:")
}

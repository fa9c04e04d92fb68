package ocr

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ignite/cardscan/internal/domain"
)

// maxHeaderLines bounds how far down the card name/company detection looks.
const maxHeaderLines = 18

var (
	spaceRun = regexp.MustCompile(`\s+`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+91[\s\-]?\d{5}[\s\-]?\d{5}`),
		regexp.MustCompile(`\+91[\s\-]?\d{10}`),
		regexp.MustCompile(`\b[6-9]\d{9}\b`),
		regexp.MustCompile(`\b0\d{2,4}[-\s]?\d{6,8}\b`),
	}
	phoneSeparators = regexp.MustCompile(`[\s\-]`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	websitePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(https?://[a-z0-9\-\.]+\.[a-z]{2,}(/[a-z0-9\-/]*)?)`),
		regexp.MustCompile(`(www\.[a-z0-9\-]+\.[a-z]{2,}(/[a-z0-9\-/]*)?)`),
		regexp.MustCompile(`([a-z0-9\-]{2,}\.(com|in|net|org|co\.in|co|info|biz))`),
	}

	cityBeforePIN = regexp.MustCompile(`\b([A-Za-z]{3,20})\s*[-,]?\s*\d{6}\b`)
	longDigitRun  = regexp.MustCompile(`\d{6,}`)
	letterRun     = regexp.MustCompile(`[A-Za-z]+`)
)

var genericMailDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"rediffmail.com": true,
}

// knownCities is checked in order, so multi-word names come first.
var knownCities = []string{
	"new delhi", "delhi", "chennai", "mumbai", "hyderabad", "pune",
	"kochi", "bengaluru", "bangalore", "kolkata", "ahmedabad",
	"jaipur", "lucknow", "indore", "bhopal", "nagpur", "mysuru", "mysore",
}

var companyKeywords = []string{
	"limited", "ltd", "pvt", "private",
	"technology", "technologies",
	"corporation", "industries", "industry",
	"solutions", "systems", "group", "services",
	"enterprises", "electronics", "electro",
}

// titleWords mark a line as a job title rather than a person's name.
var titleWords = map[string]bool{
	"manager": true, "general": true, "engineer": true, "director": true,
	"sales": true, "marketing": true, "hr": true, "solution": true,
	"solutions": true, "corporation": true, "industrial": true,
	"technology": true, "limited": true, "ltd": true, "pvt": true, "private": true,
}

// ParseCandidates extracts contact-field guesses from recognized text.
// The result is a suggestion for the user to confirm, never a record.
func ParseCandidates(text string) domain.CardFields {
	text = Normalize(text)

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = cleanLine(ln); ln != "" {
			lines = append(lines, ln)
		}
	}

	email := extractEmail(text)
	name, company := extractNameAndCompany(lines)
	return domain.CardFields{
		Name:    name,
		Company: company,
		Phone:   extractPhone(text),
		Email:   email,
		Website: extractWebsite(text, email),
		City:    extractCity(text),
	}
}

// Normalize fixes common recognition slips for "India".
func Normalize(text string) string {
	return strings.NewReplacer("Indio", "India", "indio", "india", "lndia", "India").Replace(text)
}

func cleanLine(s string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
}

func extractPhone(text string) string {
	text = strings.ReplaceAll(text, "O", "0")
	t := strings.NewReplacer(",", " ", "|", " ", "I", " ", "l", " ").Replace(text)

	for i, p := range phonePatterns {
		m := p.FindString(t)
		if m == "" {
			continue
		}
		switch i {
		case 0, 1:
			return phoneSeparators.ReplaceAllString(m, "")
		case 3:
			return strings.ReplaceAll(m, " ", "")
		default:
			return m
		}
	}
	return ""
}

// fixEmail repairs OCR damage seen on gmail addresses.
func fixEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.NewReplacer(" ", "", ";", "", ",", "").Replace(email)
	email = strings.ReplaceAll(email, "..", ".")
	email = strings.NewReplacer(
		"@gmat.on", "@gmail.com",
		"@gma1l.com", "@gmail.com",
		"gmailcom", "gmail.com",
	).Replace(email)

	if strings.Contains(email, "@gmail.") && !strings.HasSuffix(email, ".com") {
		local, _, _ := strings.Cut(email, "@gmail")
		email = local + "@gmail.com"
	}
	return email
}

// extractEmail prefers an address on a company domain over a webmail one.
func extractEmail(text string) string {
	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}
	fixed := make([]string, len(matches))
	for i, m := range matches {
		fixed[i] = fixEmail(m)
	}
	for _, e := range fixed {
		if !genericMailDomains[emailDomain(e)] {
			return e
		}
	}
	return fixed[0]
}

func emailDomain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[i+1:]))
}

// extractWebsite returns the first site-looking token that is not the
// email's own domain or a webmail provider. Empty when none qualifies.
func extractWebsite(text, email string) string {
	t := strings.NewReplacer(
		"www ", "www.",
		"http ://", "http://",
		"https ://", "https://",
	).Replace(strings.ToLower(text))

	var found []string
	seen := map[string]bool{}
	for _, p := range websitePatterns {
		for _, m := range p.FindAllStringSubmatch(t, -1) {
			site := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "")
			if strings.Contains(site, "@") || genericMailDomains[site] || seen[site] {
				continue
			}
			seen[site] = true
			found = append(found, site)
		}
	}

	if d := emailDomain(email); d != "" {
		kept := found[:0]
		for _, site := range found {
			if !strings.Contains(site, d) {
				kept = append(kept, site)
			}
		}
		found = kept
	}
	if len(found) == 0 {
		return ""
	}

	site := strings.TrimPrefix(found[0], "https://")
	return strings.TrimPrefix(site, "http://")
}

// extractCity takes the word before a 6-digit PIN code, falling back to a
// list of well-known cities.
func extractCity(text string) string {
	if m := cityBeforePIN.FindStringSubmatch(text); m != nil {
		return titleCase(m[1])
	}
	low := strings.ToLower(text)
	for _, c := range knownCities {
		if strings.Contains(low, c) {
			return titleCase(c)
		}
	}
	return ""
}

func looksLikeCompany(line string) bool {
	low := strings.ToLower(line)
	for _, k := range companyKeywords {
		if strings.Contains(low, k) {
			return true
		}
	}
	return len(strings.Fields(line)) >= 2 && strings.ToUpper(line) == line && len(line) >= 8
}

func looksLikeName(line string) bool {
	if len(line) < 3 || strings.IndexFunc(line, unicode.IsDigit) >= 0 {
		return false
	}
	low := strings.ToLower(line)
	if strings.Contains(line, "@") || strings.Contains(low, "www") ||
		strings.Contains(low, ".com") || strings.Contains(low, ".in") {
		return false
	}
	if looksLikeCompany(line) {
		return false
	}

	parts := letterRun.FindAllString(line, -1)
	for _, p := range parts {
		if titleWords[strings.ToLower(p)] {
			return false
		}
	}
	if len(parts) >= 2 && strings.ContainsAny(line, ".-") {
		return true
	}
	return len(parts) >= 2 && len(parts) <= 4
}

// extractNameAndCompany classifies the top lines of the card, skipping
// contact lines and anything with a long digit run.
func extractNameAndCompany(lines []string) (name, company string) {
	var top []string
	for _, ln := range lines {
		ln = cleanLine(ln)
		if ln == "" {
			continue
		}
		low := strings.ToLower(ln)
		if strings.Contains(ln, "@") || strings.Contains(low, "www") ||
			strings.Contains(low, ".com") || strings.Contains(low, ".in") ||
			longDigitRun.MatchString(ln) {
			continue
		}
		top = append(top, ln)
		if len(top) == maxHeaderLines {
			break
		}
	}

	for _, ln := range top {
		if looksLikeCompany(ln) {
			company = strings.ToUpper(ln)
			break
		}
	}
	for _, ln := range top {
		if looksLikeName(ln) {
			name = titleCase(ln)
			break
		}
	}
	if company == "" {
		for _, ln := range top {
			if strings.ToUpper(ln) != ln || len(ln) < 4 {
				continue
			}
			if name != "" && strings.Contains(strings.ToLower(name), strings.ToLower(ln)) {
				continue
			}
			company = strings.ToUpper(ln)
			break
		}
	}
	return name, company
}

// titleCase upper-cases the first letter of each letter run and lowers the rest.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}

package ocr

import (
	"testing"

	"github.com/ignite/cardscan/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseCandidates_FullCard(t *testing.T) {
	text := `ACME TECHNOLOGIES PVT LTD
Asha Kumar
Sales Manager
+91 98765 43210
asha.acme@gmail.com
www.acmetech.in
12 MG Road, Pune - 411001`

	assert.Equal(t, domain.CardFields{
		Name:    "Asha Kumar",
		Company: "ACME TECHNOLOGIES PVT LTD",
		Phone:   "+919876543210",
		Email:   "asha.acme@gmail.com",
		Website: "www.acmetech.in",
		City:    "Pune",
	}, ParseCandidates(text))
}

func TestParseCandidates_Empty(t *testing.T) {
	assert.Equal(t, domain.CardFields{}, ParseCandidates(""))
}

func TestExtractPhone(t *testing.T) {
	cases := map[string]string{
		"Mob: +91-98765-43210":          "+919876543210",
		"+91 9876543210":                "+919876543210",
		"call 9123456789 now":           "9123456789",
		"Tel: 022-26543210":             "022-26543210",
		"Ph 98765 O3210 and 9O12345678": "9012345678",
		"no digits here":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, extractPhone(in), in)
	}
}

func TestFixEmail(t *testing.T) {
	assert.Equal(t, "ravi@gmail.com", fixEmail("ravi@gma1l.com"))
	assert.Equal(t, "ravi@gmail.com", fixEmail("ravi@gmail.co"))
	assert.Equal(t, "ravi@gmail.com", fixEmail(" ravi@gmail..com; "))
	assert.Equal(t, "a@acme.in", fixEmail("a@acme.in"))
}

func TestExtractEmail_PrefersCompanyDomain(t *testing.T) {
	assert.Equal(t, "y@acme.co.in", extractEmail("x@gmail.com\ny@acme.co.in"))
	assert.Equal(t, "x@gmail.com", extractEmail("x@gmail.com only"))
	assert.Equal(t, "", extractEmail("nothing"))
}

func TestExtractWebsite(t *testing.T) {
	assert.Equal(t, "acme-corp.com/about", extractWebsite("Visit HTTPS://acme-corp.com/about", ""))
	assert.Equal(t, "www.acme.in", extractWebsite("www acme.in", "x@gmail.com"))
	// the e-mail's own domain is not reported as the website
	assert.Equal(t, "", extractWebsite("asha@acme.in\nwww.acme.in", "asha@acme.in"))
	assert.Equal(t, "", extractWebsite("gmail.com", ""))
}

func TestExtractCity(t *testing.T) {
	assert.Equal(t, "Chennai", extractCity("45 Anna Salai, CHENNAI 600002"))
	assert.Equal(t, "New Delhi", extractCity("Connaught Place New Delhi"))
	assert.Equal(t, "Bangalore", extractCity("office in bangalore"))
	assert.Equal(t, "", extractCity("somewhere"))
}

func TestNameAndCompany(t *testing.T) {
	name, company := extractNameAndCompany([]string{
		"Shrikant Rao",
		"General Manager",
		"BLUE OCEAN",
		"shrikant@blueocean.com",
	})
	assert.Equal(t, "Shrikant Rao", name)
	assert.Equal(t, "BLUE OCEAN", company)

	name, company = extractNameAndCompany([]string{"Dr. K. Menon", "Orion Systems"})
	assert.Equal(t, "Dr. K. Menon", name)
	assert.Equal(t, "ORION SYSTEMS", company)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Pune, India", Normalize("Pune, Indio"))
	assert.Equal(t, "India", Normalize("lndia"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Asha Kumar", titleCase("aSHA kumar"))
	assert.Equal(t, "New Delhi", titleCase("new delhi"))
}

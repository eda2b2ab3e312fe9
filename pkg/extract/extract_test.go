package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLsTrimsPunctuationAndWrappers(t *testing.T) {
	text := `Click (https://example.com/path?a=1), then "https://x.com/abc"...`
	assert.Equal(t, []string{"https://example.com/path?a=1", "https://x.com/abc"}, URLs(text))
}

func TestURLsDedupAppearanceOrder(t *testing.T) {
	text := "See https://b.example/x and https://a.example/y and https://b.example/x again"
	assert.Equal(t, []string{"https://b.example/x", "https://a.example/y"}, URLs(text))
}

func TestURLsRejectsHostless(t *testing.T) {
	assert.Empty(t, URLs("broken link http:// nothing here"))
}

func TestURLsAngleBracketWrapped(t *testing.T) {
	assert.Equal(t, []string{"https://example.com/login"}, URLs("Go to <https://example.com/login> now"))
}

func TestDomainsNormalizesWWWAndPorts(t *testing.T) {
	urls := []string{"https://www.Example.com:443/a", "http://sub.example.com/b"}
	assert.Equal(t, []string{"example.com", "sub.example.com"}, Domains(urls))
}

func TestDomainsTrailingDot(t *testing.T) {
	assert.Equal(t, "example.com", DomainFromURL("https://example.com./a"))
}

func TestEmailsUniqueLowercase(t *testing.T) {
	text := "Contact Me: Admin@Example.com and admin@example.com"
	assert.Equal(t, []string{"admin@example.com"}, Emails(text))
}

func TestPhonesConservative(t *testing.T) {
	text := "Call +1 (212) 555-1234 or 03-555-1234. Ref: 12345"
	phones := Phones(text)

	assert.Contains(t, phones, "+12125551234")
	found := false
	for _, p := range phones {
		if p == "035551234" || p == "35551234" {
			found = true
		}
	}
	assert.True(t, found, "expected local number in %v", phones)
	assert.NotContains(t, phones, "12345")
}

func TestPhonesDigitFloor(t *testing.T) {
	// 8 digits after normalization: below the floor, dropped.
	assert.Empty(t, Phones("ext 555-1234 only"))
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsShortenerDomain("bit.ly"))
	assert.True(t, IsShortenerDomain("www.t.co"))
	assert.False(t, IsShortenerDomain("example.com"))

	assert.True(t, IsPunycodeDomain("xn--pple-43d.com"))
	assert.False(t, IsPunycodeDomain("apple.com"))

	assert.Equal(t, 5, SubdomainCount("a.b.c.example.com"))
	assert.Equal(t, 0, SubdomainCount(""))
}

func TestAll(t *testing.T) {
	text := "From admin@corp.example — verify at https://bit.ly/x now or call +1 (212) 555-1234"
	art := All(text)

	assert.Equal(t, []string{"https://bit.ly/x"}, art.URLs)
	assert.Equal(t, []string{"bit.ly"}, art.Domains)
	assert.Equal(t, []string{"admin@corp.example"}, art.Emails)
	assert.Equal(t, []string{"+12125551234"}, art.Phones)
}

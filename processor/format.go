package processor

import (
	"fmt"
	"regexp"
	"strings"

	"newsflow/models"
)

// Display formatting for already-normalized events. All transforms are pure
// and idempotent: re-applying them to formatted text yields the same text.

const coinPrefix = "Coin: "

// mentionPattern matches @word tokens. The optional trailing '=' lets the
// replacement leave click markers ("[@click=...]") untouched.
var mentionPattern = regexp.MustCompile(`@(\w+)=?`)

// urlPattern matches bare URL-looking substrings.
var urlPattern = regexp.MustCompile(`(?:https?://|www\.)\S+`)

// enclosureChars are stripped from a URL before shortening.
const enclosureChars = "{}|^[]`"

// trailingPunct marks sentence punctuation that the URL pattern greedily
// swallows; it stays in the surrounding text rather than the link.
const trailingPunct = "!)"

var domainPattern = regexp.MustCompile(`://([\w.]+)`)

// FormatEvent applies the display transforms to a copy of e: mention tokens
// lose their '@', bare URLs and the link field become click markers, and the
// coin gets its display prefix.
func FormatEvent(e models.NewsEvent) models.NewsEvent {
	e.Title = formatLinks(formatMentions(e.Title))

	if e.Body != "" {
		e.Body = formatLinks(formatMentions(e.Body))
	}

	if e.Link != "" && !strings.HasPrefix(e.Link, "[@click=") {
		e.Link = clickMarker(e.Link)
	}

	if e.Coin != "" && !strings.HasPrefix(e.Coin, coinPrefix) {
		e.Coin = coinPrefix + e.Coin
	}

	return e
}

// formatMentions rewrites @word to word to avoid downstream markup
// collisions. Tokens followed by '=' are click-marker internals and kept.
func formatMentions(text string) string {
	return mentionPattern.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasSuffix(m, "=") {
			return m
		}
		return m[1:]
	})
}

// formatLinks rewrites every bare URL into a click marker carrying a
// shortened "domain/..." label. URLs already inside a marker are skipped so
// the transform can be re-applied safely.
func formatLinks(text string) string {
	matches := urlPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var sb strings.Builder
	prev := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		// Trailing punctuation belongs to the surrounding sentence, not the
		// URL; keep it outside the marker so it survives in the text.
		for end > start && strings.ContainsRune(trailingPunct, rune(text[end-1])) {
			end--
		}
		sb.WriteString(text[prev:start])

		if wrappedAlready(text, start) {
			sb.WriteString(text[start:end])
			prev = end
			continue
		}

		sb.WriteString(clickMarker(text[start:end]))
		prev = end
	}
	sb.WriteString(text[prev:])
	return sb.String()
}

// wrappedAlready reports whether the URL starting at offset sits inside an
// existing click marker: either quoted in the action (`("`) or a marker
// label that itself looks like a URL (`)]`).
func wrappedAlready(text string, start int) bool {
	if start < 2 {
		return false
	}
	switch text[start-2 : start] {
	case `("`, `)]`:
		return true
	}
	return false
}

// clickMarker produces the marker the presentation layer turns into an
// open-link action.
func clickMarker(url string) string {
	url = cleanURL(url)
	return fmt.Sprintf(`[@click=open_link("%s")]%s[/]`, url, niceLinkLabel(url))
}

// cleanURL strips enclosure characters and a '-delimited trailer that
// commonly ride along with pasted links.
func cleanURL(url string) string {
	url = strings.Map(func(r rune) rune {
		if strings.ContainsRune(enclosureChars, r) {
			return -1
		}
		return r
	}, url)
	if i := strings.IndexByte(url, '\''); i >= 0 {
		url = url[:i]
	}
	return url
}

// niceLinkLabel shortens a URL for display to its domain.
func niceLinkLabel(url string) string {
	if m := domainPattern.FindStringSubmatch(url); m != nil {
		return m[1] + "/..."
	}
	return "Link"
}

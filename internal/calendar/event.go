// Package calendar tracks the community calendar feeds: known events, the
// per-channel notification triggers registered against them, and the diff
// logic that decides what is worth announcing.
package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// uidPattern extracts the numeric event ID from a feed UID such as
	// "123-45-0123456789abcdef0123456789abcdef@di.community".
	uidPattern = regexp.MustCompile(`([0-9]+)-([0-9]+)-([a-z0-9]{32})@di\.community`)

	// titlePattern captures up to two bracketed classification tags at the
	// start of a raw summary.
	titlePattern = regexp.MustCompile(`(?s)^(?:\[([^\]]+)\]\s*(?:\[([^\]]+)\])?)?.+$`)

	// detailsPattern captures the labeled details section of a description.
	detailsPattern = regexp.MustCompile(`(?s)\s*(?:Details:|Details -|Details|Description:|Description -|Description)(.+)$`)

	// hostPattern captures the host line; mentionPattern then extracts the
	// @name mentions on it.
	hostPattern    = regexp.MustCompile(`(?m)^\s*(?:Hosting Officer|Host): *(.+)$`)
	mentionPattern = regexp.MustCompile(`@([a-zA-Z_0-9\-]+)`)
)

// Event is one calendar event as last seen in the feed. Events are created
// on first sight and overwritten in place when the feed re-presents the
// same UID with different content; they are never deleted.
type Event struct {
	EventID int    `json:"event_id"`
	UID     string `json:"uid"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	LastRefresh time.Time `json:"last_refresh"`

	Hosts []string `json:"hosts,omitempty"`

	TagPrimary   string `json:"tag_primary,omitempty"`
	TagSecondary string `json:"tag_secondary,omitempty"`

	Title       string `json:"title"`
	RawTitle    string `json:"raw_title"`
	Description string `json:"description"`
}

// apply overwrites the event's feed-owned fields from a parsed feed event.
// This is the only mutation path for a stored event.
func (e *Event) apply(p ParsedEvent, now time.Time) {
	e.UID = p.UID
	e.EventID = eventIDFromUID(p.UID)
	e.Start = p.Start.UTC()
	e.End = p.End.UTC()
	e.LastRefresh = now

	e.TagPrimary, e.TagSecondary, e.Title = parseTitle(p.Summary)
	e.RawTitle = p.Summary
	e.Description = parseDetails(p.Description)
	e.Hosts = parseHosts(p.Description)
}

// eventIDFromUID derives the numeric event ID from the feed UID. A UID
// outside the expected shape yields 0.
func eventIDFromUID(uid string) int {
	m := uidPattern.FindStringSubmatch(uid)
	if m == nil {
		return 0
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return id
}

// parseTitle extracts up to two leading bracketed tags from a raw summary
// and returns the tags plus the display title with the tags stripped.
func parseTitle(summary string) (tagPrimary, tagSecondary, title string) {
	m := titlePattern.FindStringSubmatch(summary)
	if m != nil {
		tagPrimary = m[1]
		tagSecondary = m[2]
	}

	title = summary
	if tagPrimary != "" {
		title = strings.Replace(title, "["+tagPrimary+"]", "", 1)
	}
	if tagSecondary != "" {
		title = strings.Replace(title, "["+tagSecondary+"]", "", 1)
	}
	return tagPrimary, tagSecondary, strings.TrimSpace(title)
}

// parseDetails extracts the labeled Details/Description section of a feed
// description, falling back to the whole body when no label is present.
// Double blank lines are collapsed either way.
func parseDetails(description string) string {
	if m := detailsPattern.FindStringSubmatch(description); m != nil {
		if d := strings.TrimSpace(strings.ReplaceAll(m[1], "\n\n", "\n")); d != "" {
			return d
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(description, "\n\n", "\n"))
}

// parseHosts extracts the @name mentions following the Host label.
func parseHosts(description string) []string {
	m := hostPattern.FindStringSubmatch(description)
	if m == nil {
		return nil
	}

	var hosts []string
	for _, mention := range mentionPattern.FindAllStringSubmatch(m[1], -1) {
		hosts = append(hosts, mention[1])
	}
	return hosts
}

// ReplaceMentions rewrites every @name token in s through resolve. Tokens
// resolve returns "" for are left as written.
func ReplaceMentions(s string, resolve func(name string) string) string {
	return mentionPattern.ReplaceAllStringFunc(s, func(token string) string {
		if r := resolve(strings.TrimPrefix(token, "@")); r != "" {
			return r
		}
		return token
	})
}

// TitleSlug is the event's URL path segment: the numeric ID followed by
// the lowercased title with everything but letters, digits, dashes and
// underscores dropped.
func (e *Event) TitleSlug() string {
	var b strings.Builder
	for _, c := range strings.ToLower(e.RawTitle) {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c == '_', c == '-', c == ' ':
			b.WriteRune(c)
		}
	}

	slug := strings.ReplaceAll(b.String(), " ", "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return fmt.Sprintf("%d-%s", e.EventID, slug)
}

// URL is the event's page on the community site.
func (e *Event) URL(baseURL string) string {
	return fmt.Sprintf("%scalendar/event/%s/", baseURL, e.TitleSlug())
}

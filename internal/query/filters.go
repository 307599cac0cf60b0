package query

import (
	"regexp"
	"strings"

	"github.com/supportlens/supportlens/pkg/models"
)

// Filter extraction runs independently of intent matching: a query that
// fails every intent pattern can still carry partial filters forward to the
// AI fallback as hints. Each heuristic owns one filter key and only the
// first successful match per key is kept, so more specific expressions must
// be listed before looser ones.

var (
	statusRegex   = regexp.MustCompile(`(?i)\b(open|closed|pending|solved|resolved|unresolved|active)\b`)
	priorityRegex = regexp.MustCompile(`(?i)\b(urgent|high|medium|low)(?:\s+priority)?\b`)
	typeRegex     = regexp.MustCompile(`(?i)\b(incident|question|problem|task)s?\b`)

	assignedToMeRegex   = regexp.MustCompile(`(?i)\b(?:assigned\s+to\s+me|my\s+tickets?)\b`)
	assignedToNameRegex = regexp.MustCompile(`(?i)\bassigned\s+to\s+([a-z][a-z0-9._-]*)\b`)

	organizationRegex = regexp.MustCompile(`(?i)\bfrom\s+(?:the\s+)?([a-z][a-z0-9&._-]*(?:\s+(?:inc|corp|ltd|llc|gmbh|co))?)\b`)

	taggedRegex  = regexp.MustCompile(`(?i)\btagged\s+(?:with\s+)?([a-z0-9_-]+)`)
	withTagRegex = regexp.MustCompile(`(?i)\bwith\s+tag\s+([a-z0-9_-]+)`)

	ticketIDRegex = regexp.MustCompile(`(?i)(?:ticket\s+#?|#)(\d+)\b`)

	todayRegex     = regexp.MustCompile(`(?i)\b(?:today|yesterday|last\s+24\s+hours?|past\s+day)\b`)
	thisWeekRegex  = regexp.MustCompile(`(?i)\b(?:this\s+week|last\s+week|past\s+week|last\s+7\s+days?)\b`)
	thisMonthRegex = regexp.MustCompile(`(?i)\b(?:this\s+month|last\s+month|past\s+month|last\s+30\s+days?)\b`)
)

// statusSynonyms normalizes status vocabulary to the canonical state names
// the vendor API uses.
var statusSynonyms = map[string]string{
	"resolved":   "solved",
	"active":     "open",
	"unresolved": "open",
}

// dateLeadWords are tokens that start relative-date phrases. The
// organization heuristic refuses captures that begin with one of these so
// "from last week" never becomes an organization name (RE2 has no
// lookahead, so the overlap is resolved here).
var dateLeadWords = map[string]bool{
	"last": true, "this": true, "past": true, "previous": true,
	"today": true, "yesterday": true, "week": true, "month": true,
}

// ExtractFilters pulls recognized filter values out of a raw query.
// Always returns a non-nil map; unrecognized queries yield an empty one.
func ExtractFilters(query string) map[models.FilterKey]string {
	filters := make(map[models.FilterKey]string)

	if m := statusRegex.FindStringSubmatch(query); m != nil {
		status := strings.ToLower(m[1])
		if canonical, ok := statusSynonyms[status]; ok {
			status = canonical
		}
		filters[models.FilterStatus] = status
	}

	if m := priorityRegex.FindStringSubmatch(query); m != nil {
		filters[models.FilterPriority] = strings.ToLower(m[1])
	}

	if m := typeRegex.FindStringSubmatch(query); m != nil {
		filters[models.FilterType] = strings.ToLower(m[1])
	}

	// "assigned to me" is more specific than "assigned to <name>", test it first.
	if assignedToMeRegex.MatchString(query) {
		filters[models.FilterAssignee] = "me"
	} else if m := assignedToNameRegex.FindStringSubmatch(query); m != nil {
		filters[models.FilterAssignee] = strings.ToLower(m[1])
	}

	// Relative-date buckets, most specific window first.
	switch {
	case todayRegex.MatchString(query):
		filters[models.FilterCreatedDate] = models.DateToday
	case thisWeekRegex.MatchString(query):
		filters[models.FilterCreatedDate] = models.DateThisWeek
	case thisMonthRegex.MatchString(query):
		filters[models.FilterCreatedDate] = models.DateThisMonth
	}

	if m := organizationRegex.FindStringSubmatch(query); m != nil {
		org := strings.ToLower(m[1])
		lead := strings.Fields(org)
		if len(lead) > 0 && !dateLeadWords[lead[0]] {
			filters[models.FilterOrganization] = org
		}
	}

	if m := taggedRegex.FindStringSubmatch(query); m != nil {
		filters[models.FilterTags] = strings.ToLower(m[1])
	} else if m := withTagRegex.FindStringSubmatch(query); m != nil {
		filters[models.FilterTags] = strings.ToLower(m[1])
	}

	if m := ticketIDRegex.FindStringSubmatch(query); m != nil {
		filters[models.FilterTicketID] = m[1]
	}

	return filters
}

package models

// Intent is the closed-enum classification of what a query is asking for.
type Intent string

const (
	// IntentCountTickets asks for a count of tickets matching filters.
	IntentCountTickets Intent = "count_tickets"
	// IntentListTickets asks for a listing of tickets.
	IntentListTickets Intent = "list_tickets"
	// IntentSearchTickets asks for a free-text search over tickets.
	IntentSearchTickets Intent = "search_tickets"
	// IntentShowTicket asks for a single ticket by ID.
	IntentShowTicket Intent = "show_ticket"
	// IntentListConversations asks for a listing of conversations.
	IntentListConversations Intent = "list_conversations"
	// IntentTicketStats asks for aggregate statistics.
	IntentTicketStats Intent = "ticket_stats"
	// IntentComplexQuestion is an analytical question that needs grounded
	// AI reasoning over the full dataset.
	IntentComplexQuestion Intent = "complex_question"
	// IntentHelp asks what the system can do.
	IntentHelp Intent = "help"
	// IntentUnknown is the universal safe default.
	IntentUnknown Intent = "unknown"
)

// KnownIntents is the set of intents the AI extraction path may return.
var KnownIntents = map[Intent]bool{
	IntentCountTickets:      true,
	IntentListTickets:       true,
	IntentSearchTickets:     true,
	IntentShowTicket:        true,
	IntentListConversations: true,
	IntentTicketStats:       true,
	IntentComplexQuestion:   true,
	IntentHelp:              true,
	IntentUnknown:           true,
}

// Method records which path produced an interpretation.
type Method string

const (
	// MethodPattern means a regex pattern matched the query.
	MethodPattern Method = "pattern_match"
	// MethodAI means the language model extracted the interpretation.
	MethodAI Method = "ai"
)

// FilterKey names a recognized query filter.
type FilterKey string

const (
	FilterStatus       FilterKey = "status"
	FilterPriority     FilterKey = "priority"
	FilterType         FilterKey = "type"
	FilterAssignee     FilterKey = "assignee"
	FilterOrganization FilterKey = "organization"
	FilterTags         FilterKey = "tags"
	FilterCreatedDate  FilterKey = "created_date"
	FilterTicketID     FilterKey = "ticket_id"
)

// KnownFilterKeys is the set of filter keys the AI extraction path may return.
var KnownFilterKeys = map[FilterKey]bool{
	FilterStatus:       true,
	FilterPriority:     true,
	FilterType:         true,
	FilterAssignee:     true,
	FilterOrganization: true,
	FilterTags:         true,
	FilterCreatedDate:  true,
	FilterTicketID:     true,
}

// Date bucket values for the created_date filter.
const (
	DateToday     = "today"
	DateThisWeek  = "this_week"
	DateThisMonth = "this_month"
)

// InterpretationResult is the structured output of query interpretation,
// whether produced by pattern matching or by the AI path.
type InterpretationResult struct {
	Intent     Intent               `json:"intent"`
	Filters    map[FilterKey]string `json:"filters,omitempty"`
	Confidence float64              `json:"confidence"`
	Method     Method               `json:"method"`
	Reasoning  string               `json:"reasoning,omitempty"`
}

// Clone returns a deep copy so cached results cannot be mutated by callers.
func (r *InterpretationResult) Clone() *InterpretationResult {
	out := *r
	if r.Filters != nil {
		out.Filters = make(map[FilterKey]string, len(r.Filters))
		for k, v := range r.Filters {
			out.Filters[k] = v
		}
	}
	return &out
}

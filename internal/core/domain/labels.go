package domain

import "strings"

// Greek labels used by spreadsheet export and import
var statusLabels = map[IssueStatus]string{
	StatusPending:    "Εκκρεμεί",
	StatusInProgress: "Σε εξέλιξη",
	StatusCompleted:  "Ολοκληρώθηκε",
	StatusRejected:   "Απορρίφθηκε",
	StatusCancelled:  "Ακυρώθηκε",
}

var priorityLabels = map[Priority]string{
	PriorityLow:       "Χαμηλή",
	PriorityMedium:    "Μεσαία",
	PriorityHigh:      "Υψηλή",
	PriorityEmergency: "Επείγουσα",
}

// Label returns the Greek display name of s
func (s IssueStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Label returns the Greek display name of p
func (p Priority) Label() string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return string(p)
}

// ParseStatus accepts either the enum value or its Greek label
func ParseStatus(s string) (IssueStatus, bool) {
	s = strings.TrimSpace(s)
	if st := IssueStatus(strings.ToUpper(s)); st.Valid() {
		return st, true
	}
	for st, label := range statusLabels {
		if strings.EqualFold(label, s) {
			return st, true
		}
	}
	return "", false
}

// ParsePriority accepts either the enum value or its Greek label
func ParsePriority(s string) (Priority, bool) {
	s = strings.TrimSpace(s)
	if p := Priority(strings.ToUpper(s)); p.Valid() {
		return p, true
	}
	for p, label := range priorityLabels {
		if strings.EqualFold(label, s) {
			return p, true
		}
	}
	return "", false
}

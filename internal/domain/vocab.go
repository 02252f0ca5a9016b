package domain

// Status is a complaint's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"

	// StatusInProgressLegacy is the hyphenated literal the dashboard filter
	// uses. It is a distinct value and never passes Valid.
	StatusInProgressLegacy Status = "in-progress"
)

// Statuses lists the canonical states in lifecycle order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusClosed}

// Valid reports whether s is one of the four canonical states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Filterable reports whether s may be used as a dashboard status filter.
func (s Status) Filterable() bool { return s.Valid() || s == StatusInProgressLegacy }

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// Valid reports whether s is user or admin.
func (s Sender) Valid() bool { return s == SenderUser || s == SenderAdmin }

// Category is an open vocabulary. The submission form, the admin filter and
// the tracking view each know a different subset.
type Category string

// Submission form categories.
const (
	CategoryEmergency      Category = "emergency"
	CategoryOperations     Category = "operations"
	CategoryAdministrative Category = "administrative"
	CategoryWithinCenter   Category = "within_center"
	CategoryOther          Category = "other"
)

// Admin filter categories not offered at submission.
const (
	CategorySuggestion Category = "suggestion"
	CategoryAmbulance  Category = "ambulance"
	CategoryCenter     Category = "center"
)

// Tracking view label-only categories.
const (
	CategoryTechnical Category = "technical"
	CategoryFinancial Category = "financial"
)

// SubmissionCategories is the set accepted on new complaints.
var SubmissionCategories = []Category{
	CategoryEmergency, CategoryOperations, CategoryAdministrative, CategoryWithinCenter, CategoryOther,
}

// FilterCategories is the admin dashboard's filter vocabulary.
var FilterCategories = []Category{
	CategorySuggestion, CategoryOperations, CategoryAmbulance, CategoryCenter,
}

// Submittable reports whether c may be chosen on the submission form.
func (c Category) Submittable() bool {
	for _, v := range SubmissionCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Known reports whether c appears in any view's vocabulary.
func (c Category) Known() bool {
	if c.Submittable() {
		return true
	}
	switch c {
	case CategorySuggestion, CategoryAmbulance, CategoryCenter, CategoryTechnical, CategoryFinancial:
		return true
	}
	return false
}

// Priority is a complaint's urgency.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"

	// Display-only values referenced by the detail view.
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Submittable reports whether p may be chosen on the submission form.
func (p Priority) Submittable() bool { return p == PriorityNormal || p == PriorityUrgent }

// Known reports whether p is any recognised priority.
func (p Priority) Known() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

var statusLabels = map[Status]string{
	StatusPending:          "قيد الانتظار",
	StatusInProgress:       "قيد المعالجة",
	StatusInProgressLegacy: "قيد المعالجة",
	StatusResolved:         "تم الحل",
	StatusClosed:           "مغلقة",
}

var categoryLabels = map[Category]string{
	CategoryEmergency:      "إسعاف",
	CategoryOperations:     "عمليات",
	CategoryAdministrative: "إدارية",
	CategoryWithinCenter:   "ضمن المركز",
	CategoryOther:          "أخرى",
	CategorySuggestion:     "اقتراح",
	CategoryAmbulance:      "اسعاف",
	CategoryCenter:         "خاص بالمركز",
}

// trackingCategoryLabels is the tracking view's own table; it disagrees with
// the submission labels for "administrative".
var trackingCategoryLabels = map[Category]string{
	CategoryTechnical:      "مشكلة تقنية",
	CategoryAdministrative: "شكوى إدارية",
	CategoryFinancial:      "شكوى مالية",
	CategoryOther:          "أخرى",
}

var priorityLabels = map[Priority]string{
	PriorityNormal: "عادي",
	PriorityUrgent: "عاجل",
	PriorityLow:    "منخفضة",
	PriorityMedium: "متوسطة",
	PriorityHigh:   "عالية",
}

// StatusLabel returns the Arabic label for s, or s itself when unknown.
func StatusLabel(s Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// CategoryLabel returns the Arabic label used by the submission and admin views.
func CategoryLabel(c Category) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// TrackingCategoryLabel returns the label the tracking view shows for c.
func TrackingCategoryLabel(c Category) string {
	if l, ok := trackingCategoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// PriorityLabel returns the Arabic label for p, or p itself when unknown.
func PriorityLabel(p Priority) string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return string(p)
}

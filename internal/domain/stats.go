package domain

// StatsPeriod is a time window for activity statistics.
type StatsPeriod string

const (
	StatsPeriodWeek  StatsPeriod = "week"
	StatsPeriodMonth StatsPeriod = "month"
	StatsPeriodYear  StatsPeriod = "year"
)

// Days returns the number of days covered by the period.
func (p StatsPeriod) Days() int {
	switch p {
	case StatsPeriodMonth:
		return 30
	case StatsPeriodYear:
		return 365
	default:
		return 7
	}
}

// Valid reports whether the period is a recognized value.
func (p StatsPeriod) Valid() bool {
	switch p {
	case StatsPeriodWeek, StatsPeriodMonth, StatsPeriodYear:
		return true
	}
	return false
}

// UserStats is the aggregate overview for an owner.
type UserStats struct {
	TotalResources    int64           `json:"total_resources"`
	TotalCollections  int64           `json:"total_collections"`
	TotalTags         int64           `json:"total_tags"`
	FavoriteResources int64           `json:"favorite_resources"`
	ArchivedResources int64           `json:"archived_resources"`
	TotalVisits       int64           `json:"total_visits"`
	RecentActivity    []ActivityEntry `json:"recent_activity"`
	TopTags           []TagCount      `json:"top_tags"`
	TopDomains        []DomainCount   `json:"top_domains"`
}

// ActivityEntry is one day of add/visit activity.
type ActivityEntry struct {
	Date    string `json:"date"`
	Added   int64  `json:"added"`
	Visited int64  `json:"visited"`
}

// TagCount pairs a tag name with its usage count.
type TagCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// DomainCount pairs a link domain with the number of links pointing at it.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

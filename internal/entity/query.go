package entity

// SortField names a task column the store can order by.
type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortUpdatedAt   SortField = "updated_at"
	SortCompletedAt SortField = "completed_at"
	SortReminder    SortField = "reminder"
	SortDueDate     SortField = "due_date"
)

func (f SortField) Valid() bool {
	switch f {
	case SortCreatedAt, SortUpdatedAt, SortCompletedAt, SortReminder, SortDueDate:
		return true
	}
	return false
}

type SortOrder struct {
	Field SortField
	Desc  bool
}

// TaskFilter is a conjunction; zero values do not constrain.
type TaskFilter struct {
	Status      Status
	NotStatus   Status
	HasReminder bool
}

// TaskQuery is the query shape every store backend must support. Absent
// values order before present ones, so descending sorts put them last.
type TaskQuery struct {
	Filter TaskFilter
	Sort   []SortOrder
}

package modules

// Module is a named feature area of the dashboard, gated by permission
// checks. Inactive modules never appear in accessibility computations.
type Module struct {
	ID          int64
	Name        string
	DisplayName string
	Description string
	Icon        string
	SortOrder   int32
	IsActive    bool
}

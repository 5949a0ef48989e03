package types

// Entry is a single row of a project's entries table
type Entry struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

// CreateEntry holds the fields accepted when inserting an entry
type CreateEntry struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

package pagination

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination is the metadata returned next to every paged listing.
type Pagination struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalItems      int64 `json:"totalItems"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// Normalize clamps page to >= 1 and resets out-of-range sizes to the default.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return page, size
}

// Offset is the number of rows to skip for a normalized page.
func Offset(page, size int) int {
	return (page - 1) * size
}

func New(page, size int, total int64) Pagination {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return Pagination{
		CurrentPage:     page,
		TotalPages:      totalPages,
		TotalItems:      total,
		ItemsPerPage:    size,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// Package paginator splits result lists into fixed-size pages.
package paginator

// Paginate returns consecutive pages of at most pageSize items, preserving
// order. Pages share the backing array of items. Empty input or a
// non-positive pageSize yields no pages.
func Paginate[T any](items []T, pageSize int) [][]T {
	if pageSize <= 0 || len(items) == 0 {
		return nil
	}
	pages := make([][]T, 0, (len(items)+pageSize-1)/pageSize)
	for start := 0; start < len(items); start += pageSize {
		end := min(start+pageSize, len(items))
		pages = append(pages, items[start:end:end])
	}
	return pages
}

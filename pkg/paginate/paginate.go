// Package paginate slices ordered result sets into fixed-size pages.
package paginate

// DefaultPageSize is the number of rows per page when none is configured.
const DefaultPageSize = 15

// Page is one window of a result set. Index is 1-based.
type Page[T any] struct {
	Index int
	Size  int
	Count int
	Total int
	Rows  []T
}

// PageCount returns ceil(total/size), or 0 for an empty result set.
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Clamp returns requested limited to [1, max(count, 1)].
func Clamp(requested, count int) int {
	if count < 1 {
		count = 1
	}
	if requested < 1 {
		return 1
	}
	if requested > count {
		return count
	}
	return requested
}

// Paginate returns page requested of rows. Out-of-range requests are
// clamped. The returned Rows share storage with rows.
func Paginate[T any](rows []T, size, requested int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	count := PageCount(len(rows), size)
	idx := Clamp(requested, count)
	start := (idx - 1) * size
	end := start + size
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	return Page[T]{
		Index: idx,
		Size:  size,
		Count: count,
		Total: len(rows),
		Rows:  rows[start:end:end],
	}
}

// Pager tracks navigation over a result set of a known length.
type Pager struct {
	size    int
	total   int
	current int
}

// NewPager returns a pager positioned on page 1 of an empty result set.
func NewPager(size int) *Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager{size: size, current: 1}
}

// Reset starts over on page 1 for a new result set of total rows.
func (p *Pager) Reset(total int) {
	p.total = total
	p.current = 1
}

// Next advances one page. It is a no-op on the last page.
func (p *Pager) Next() {
	if p.HasNext() {
		p.current++
	}
}

// Previous goes back one page. It is a no-op on page 1.
func (p *Pager) Previous() {
	if p.HasPrevious() {
		p.current--
	}
}

// GoTo jumps to page n, clamped to the valid range.
func (p *Pager) GoTo(n int) {
	p.current = Clamp(n, p.Count())
}

// HasNext reports whether a later page exists.
func (p *Pager) HasNext() bool { return p.current < p.Count() }

// HasPrevious reports whether an earlier page exists.
func (p *Pager) HasPrevious() bool { return p.current > 1 }

// Current returns the 1-based current page.
func (p *Pager) Current() int { return p.current }

// Count returns the number of pages.
func (p *Pager) Count() int { return PageCount(p.total, p.size) }

// Size returns the page size.
func (p *Pager) Size() int { return p.size }

// Total returns the number of rows.
func (p *Pager) Total() int { return p.total }

// Apply returns the current page of rows. rows must have the length the
// pager was last reset to.
func Apply[T any](p *Pager, rows []T) Page[T] {
	return Paginate(rows, p.size, p.current)
}

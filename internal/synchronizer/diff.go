package synchronizer

// Plan is the outcome of comparing a fresh identifier list against the items
// of the previous snapshot. Identifiers absent from the fresh list are
// dropped: the merged result mirrors the upstream's current list.
type Plan[T any] struct {
	fresh   []string
	carried map[string]T
	toFetch []string
}

// Diff carries forward every existing item whose identifier appears verbatim
// in fresh and schedules the rest for fetching. With no existing items
// everything is fetched.
func Diff[T any](existing []T, idOf func(T) string, fresh []string) Plan[T] {
	known := make(map[string]T, len(existing))
	for _, item := range existing {
		known[idOf(item)] = item
	}

	p := Plan[T]{
		fresh:   fresh,
		carried: make(map[string]T),
	}
	scheduled := make(map[string]bool)
	for _, id := range fresh {
		if item, ok := known[id]; ok {
			p.carried[id] = item
			continue
		}
		if !scheduled[id] {
			scheduled[id] = true
			p.toFetch = append(p.toFetch, id)
		}
	}
	return p
}

// ToFetch returns the identifiers that need a body fetch, in fresh order.
func (p Plan[T]) ToFetch() []string {
	return p.toFetch
}

// CarryForward returns the reused items in fresh order.
func (p Plan[T]) CarryForward() []T {
	out := make([]T, 0, len(p.carried))
	seen := make(map[string]bool, len(p.carried))
	for _, id := range p.fresh {
		if item, ok := p.carried[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, item)
		}
	}
	return out
}

// Resolve returns the item for id from the carried set or fetched.
func (p Plan[T]) Resolve(id string, fetched map[string]T) (T, bool) {
	if item, ok := p.carried[id]; ok {
		return item, true
	}
	item, ok := fetched[id]
	return item, ok
}

// Merge returns one item per fresh identifier, in fresh order. Identifiers
// that are neither carried nor fetched are left out.
func (p Plan[T]) Merge(fetched map[string]T) []T {
	out := make([]T, 0, len(p.fresh))
	for _, id := range p.fresh {
		if item, ok := p.Resolve(id, fetched); ok {
			out = append(out, item)
		}
	}
	return out
}

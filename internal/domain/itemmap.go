package domain

import (
	"sort"
)

// ItemMap stores per-size quantities keyed by product then size. Carts and
// wishlists are both shaped this way; only their merge policies differ.
type ItemMap map[string]map[string]int

// ItemRef addresses one (product, size) slot together with its quantity. It
// is the flat exchange form used by sync payloads and list responses.
type ItemRef struct {
	ProductID string
	Size      string
	Quantity  int
}

// Valid reports whether the ref can address a slot: both keys present and a
// positive quantity. Sync payloads arrive from browser storage and may carry
// partially deleted entries; invalid refs are skipped, never an error.
func (r ItemRef) Valid() bool {
	return r.ProductID != "" && r.Size != "" && r.Quantity > 0
}

// Clone returns a deep, writable copy; mutating the copy never touches the
// receiver. A nil receiver yields an empty map, so fresh accounts whose
// documents carry no cart or wishlist field can be mutated straight away.
func (m ItemMap) Clone() ItemMap {
	out := make(ItemMap, len(m))
	for product, sizes := range m {
		inner := make(map[string]int, len(sizes))
		for size, qty := range sizes {
			inner[size] = qty
		}
		out[product] = inner
	}
	return out
}

// Get returns the quantity stored for the slot, zero when absent.
func (m ItemMap) Get(productID, size string) int {
	if m == nil {
		return 0
	}
	return m[productID][size]
}

// AddOne increments the slot by one, creating it as needed.
func (m ItemMap) AddOne(productID, size string) {
	sizes, ok := m[productID]
	if !ok {
		sizes = make(map[string]int)
		m[productID] = sizes
	}
	sizes[size]++
}

// Set writes an absolute quantity. A quantity of zero or less deletes the
// slot, and a product entry left without sizes is pruned so the map never
// accumulates empty husks.
func (m ItemMap) Set(productID, size string, quantity int) {
	if quantity <= 0 {
		m.Remove(productID, size)
		return
	}
	sizes, ok := m[productID]
	if !ok {
		sizes = make(map[string]int)
		m[productID] = sizes
	}
	sizes[size] = quantity
}

// Remove deletes the slot and prunes the product entry when it empties. It
// reports whether the slot existed.
func (m ItemMap) Remove(productID, size string) bool {
	sizes, ok := m[productID]
	if !ok {
		return false
	}
	if _, ok := sizes[size]; !ok {
		return false
	}
	delete(sizes, size)
	if len(sizes) == 0 {
		delete(m, productID)
	}
	return true
}

// MergeMax folds incoming refs into the map keeping the larger quantity per
// slot. Server state never shrinks from a sync; invalid refs are skipped.
// Returns the number of slots that actually changed, so callers can skip the
// write when a replayed sync carried nothing new.
func (m ItemMap) MergeMax(incoming []ItemRef) int {
	changed := 0
	for _, ref := range incoming {
		if !ref.Valid() {
			continue
		}
		if ref.Quantity > m.Get(ref.ProductID, ref.Size) {
			m.Set(ref.ProductID, ref.Size, ref.Quantity)
			changed++
		}
	}
	return changed
}

// MergeOverwrite stamps every valid incoming ref into the map with quantity
// one, regardless of what was stored. Wishlists track presence, not counts.
// Returns the number of slots that actually changed.
func (m ItemMap) MergeOverwrite(incoming []ItemRef) int {
	changed := 0
	for _, ref := range incoming {
		if ref.ProductID == "" || ref.Size == "" {
			continue
		}
		if m.Get(ref.ProductID, ref.Size) != 1 {
			m.Set(ref.ProductID, ref.Size, 1)
			changed++
		}
	}
	return changed
}

// Flatten lists every slot with a positive quantity, ordered by product then
// size so responses are stable.
func (m ItemMap) Flatten() []ItemRef {
	refs := make([]ItemRef, 0, len(m))
	for product, sizes := range m {
		for size, qty := range sizes {
			if qty <= 0 {
				continue
			}
			refs = append(refs, ItemRef{ProductID: product, Size: size, Quantity: qty})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ProductID != refs[j].ProductID {
			return refs[i].ProductID < refs[j].ProductID
		}
		return refs[i].Size < refs[j].Size
	})
	return refs
}

package cache

// Operation is a mutation that makes cached queries stale
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpStatus Operation = "status"
)

// Scope locates a mutation in the taxonomy. Zero IDs mean unknown.
type Scope struct {
	CategoryID    int64
	SubcategoryID int64
}

func (s Scope) known() bool {
	return s.CategoryID > 0 && s.SubcategoryID > 0
}

// InvalidationTable maps each operation to the key prefixes it makes stale
type InvalidationTable map[Operation]func(Scope) []Key

// DefaultInvalidationTable drops the affected subcategory listing, or every
// listing when the subcategory is unknown.
func DefaultInvalidationTable() InvalidationTable {
	contents := func(s Scope) []Key {
		if !s.known() {
			return []Key{{QueryAllContents}}
		}
		return []Key{ContentsPrefix(s.CategoryID, s.SubcategoryID)}
	}

	return InvalidationTable{
		OpCreate: contents,
		OpUpdate: contents,
		OpDelete: contents,
		OpStatus: contents,
	}
}

// Keys returns the prefixes to invalidate for op. Unlisted operations
// invalidate nothing.
func (t InvalidationTable) Keys(op Operation, scope Scope) []Key {
	fn, ok := t[op]
	if !ok {
		return nil
	}
	return fn(scope)
}

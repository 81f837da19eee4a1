package store

// Op enumerates filter predicates supported by every store.
type Op int

const (
	OpEq Op = iota
	OpIn
	OpGte
	OpLt
	OpLte
	OpILike
)

// Cond is a single column predicate.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

// Filter is a conjunction of predicates plus ordering and paging.
type Filter struct {
	Conds  []Cond
	Order  []string
	Max    uint64
	Offset uint64
}

// Where builds a filter from predicates.
func Where(conds ...Cond) Filter {
	return Filter{Conds: conds}
}

// All matches every row.
func All() Filter {
	return Filter{}
}

// And appends predicates.
func (f Filter) And(conds ...Cond) Filter {
	f.Conds = append(append([]Cond{}, f.Conds...), conds...)
	return f
}

// OrderBy sets the ordering, e.g. "service_date", "id DESC".
func (f Filter) OrderBy(cols ...string) Filter {
	f.Order = cols
	return f
}

// Limit caps the number of returned rows.
func (f Filter) Limit(n uint64) Filter {
	f.Max = n
	return f
}

// Skip sets the row offset.
func (f Filter) Skip(n uint64) Filter {
	f.Offset = n
	return f
}

func Eq(col string, v any) Cond  { return Cond{Column: col, Op: OpEq, Value: v} }
func Gte(col string, v any) Cond { return Cond{Column: col, Op: OpGte, Value: v} }
func Lt(col string, v any) Cond  { return Cond{Column: col, Op: OpLt, Value: v} }
func Lte(col string, v any) Cond { return Cond{Column: col, Op: OpLte, Value: v} }

// ILike is a case-insensitive pattern match where % matches any run of characters.
func ILike(col, pattern string) Cond { return Cond{Column: col, Op: OpILike, Value: pattern} }

// In matches rows whose column is one of vals. An empty set matches nothing.
func In[T any](col string, vals []T) Cond {
	set := make([]any, len(vals))
	for i, v := range vals {
		set[i] = v
	}
	return Cond{Column: col, Op: OpIn, Value: set}
}

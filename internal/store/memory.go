package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

// Memory is an in-process Store used by tests and local demos. Rows keep
// insertion order; Insert assigns an incrementing "id" when none is given.
type Memory struct {
	mu      sync.Mutex
	tables  map[Entity][]Record
	nextID  map[Entity]int64
	queries map[Entity]int
	fail    map[Entity]error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		tables:  make(map[Entity][]Record),
		nextID:  make(map[Entity]int64),
		queries: make(map[Entity]int),
		fail:    make(map[Entity]error),
	}
}

// Seed appends rows as-is.
func (m *Memory) Seed(entity Entity, rows ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.tables[entity] = append(m.tables[entity], r.Clone())
		if id, ok := toInt64(r["id"]); ok && id > m.nextID[entity] {
			m.nextID[entity] = id
		}
	}
}

// FailOn makes every operation on entity return err wrapped as backend unavailable.
func (m *Memory) FailOn(entity Entity, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[entity] = err
}

// QueryCount reports how many times entity was queried.
func (m *Memory) QueryCount(entity Entity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[entity]
}

// Rows returns a copy of every row of entity.
func (m *Memory) Rows(entity Entity) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.tables[entity]))
	for i, r := range m.tables[entity] {
		out[i] = r.Clone()
	}
	return out
}

// Query implements Store.
func (m *Memory) Query(_ context.Context, entity Entity, filter Filter) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[entity]++
	if err := m.failure(entity); err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range m.tables[entity] {
		ok, err := matches(r, filter.Conds)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r.Clone())
		}
	}
	if len(filter.Order) > 0 {
		if err := sortRecords(out, filter.Order); err != nil {
			return nil, err
		}
	}
	if filter.Offset > 0 {
		if filter.Offset >= uint64(len(out)) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Max > 0 && uint64(len(out)) > filter.Max {
		out = out[:filter.Max]
	}
	return out, nil
}

// Insert implements Store.
func (m *Memory) Insert(_ context.Context, entity Entity, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(entity); err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("%w: empty record", shared.ErrValidation)
	}
	row := rec.Clone()
	if !row.Has("id") {
		m.nextID[entity]++
		row["id"] = m.nextID[entity]
	}
	m.tables[entity] = append(m.tables[entity], row)
	return row.Clone(), nil
}

// Update implements Store.
func (m *Memory) Update(_ context.Context, entity Entity, filter Filter, patch Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(entity); err != nil {
		return 0, err
	}
	if len(filter.Conds) == 0 {
		return 0, fmt.Errorf("%w: update %s without filter", shared.ErrValidation, entity)
	}
	var n int64
	for _, r := range m.tables[entity] {
		ok, err := matches(r, filter.Conds)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
		n++
	}
	return n, nil
}

// Upsert implements Store.
func (m *Memory) Upsert(_ context.Context, entity Entity, rec Record, conflictKey ...string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure(entity); err != nil {
		return nil, err
	}
	if len(conflictKey) == 0 {
		return nil, fmt.Errorf("%w: upsert %s needs a conflict key", shared.ErrValidation, entity)
	}
	conds := make([]Cond, 0, len(conflictKey))
	for _, k := range conflictKey {
		v, ok := rec[k]
		if !ok {
			return nil, fmt.Errorf("%w: upsert %s missing key column %s", shared.ErrValidation, entity, k)
		}
		conds = append(conds, Eq(k, v))
	}
	for _, r := range m.tables[entity] {
		ok, err := matches(r, conds)
		if err != nil {
			return nil, err
		}
		if ok {
			for k, v := range rec {
				r[k] = v
			}
			return r.Clone(), nil
		}
	}
	row := rec.Clone()
	if !row.Has("id") {
		m.nextID[entity]++
		row["id"] = m.nextID[entity]
	}
	m.tables[entity] = append(m.tables[entity], row)
	return row.Clone(), nil
}

// WithTx snapshots every table and restores it when fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	snapshot := make(map[Entity][]Record, len(m.tables))
	for e, rows := range m.tables {
		cp := make([]Record, len(rows))
		for i, r := range rows {
			cp[i] = r.Clone()
		}
		snapshot[e] = cp
	}
	ids := make(map[Entity]int64, len(m.nextID))
	for e, id := range m.nextID {
		ids[e] = id
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.tables = snapshot
		m.nextID = ids
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) failure(entity Entity) error {
	if err, ok := m.fail[entity]; ok && err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrBackendUnavailable, entity, err)
	}
	return nil
}

func matches(r Record, conds []Cond) (bool, error) {
	for _, c := range conds {
		v := r[c.Column]
		switch c.Op {
		case OpEq:
			if v == nil && c.Value == nil {
				continue
			}
			if cmp, ok := compare(v, c.Value); !ok || cmp != 0 {
				return false, nil
			}
		case OpIn:
			set, _ := c.Value.([]any)
			found := false
			for _, candidate := range set {
				if cmp, ok := compare(v, candidate); ok && cmp == 0 {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		case OpGte, OpLt, OpLte:
			cmp, ok := compare(v, c.Value)
			if !ok {
				return false, nil
			}
			if (c.Op == OpGte && cmp < 0) || (c.Op == OpLt && cmp >= 0) || (c.Op == OpLte && cmp > 0) {
				return false, nil
			}
		case OpILike:
			pattern, _ := c.Value.(string)
			s, ok := v.(string)
			if !ok || !likeMatch(strings.ToLower(s), strings.ToLower(pattern)) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("store: unsupported op %d on %s", c.Op, c.Column)
		}
	}
	return true, nil
}

// compare orders two scalar values of compatible kinds.
func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok || ba == bb {
			return 0, ok
		}
		if !ba {
			return -1, true
		}
		return 1, true
	}
	if ia, ok := toInt64(a); ok {
		if ib, ok := toInt64(b); ok {
			switch {
			case ia < ib:
				return -1, true
			case ia > ib:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	da, okA := toDecimal(a)
	db, okB := toDecimal(b)
	if okA && okB {
		return da.Cmp(db), true
	}
	return 0, false
}

// likeMatch implements SQL LIKE over lower-cased inputs. % matches any run,
// _ matches one character and a backslash escapes the next pattern character.
func likeMatch(s, pattern string) bool {
	return likeRunes([]rune(s), []rune(pattern))
}

func likeRunes(s, p []rune) bool {
	for len(p) > 0 {
		switch p[0] {
		case '%':
			for len(p) > 0 && p[0] == '%' {
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if likeRunes(s[i:], p) {
					return true
				}
			}
			return false
		case '_':
			if len(s) == 0 {
				return false
			}
		case '\\':
			if len(p) > 1 {
				p = p[1:]
			}
			fallthrough
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
		}
		s, p = s[1:], p[1:]
	}
	return len(s) == 0
}

func sortRecords(rows []Record, order []string) error {
	type key struct {
		col  string
		desc bool
	}
	keys := make([]key, 0, len(order))
	for _, spec := range order {
		col, desc, err := orderColumn(spec)
		if err != nil {
			return err
		}
		keys = append(keys, key{col: col, desc: desc})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			cmp, ok := compare(rows[i][k.col], rows[j][k.col])
			if !ok || cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return nil
}

var (
	_ Store      = (*Memory)(nil)
	_ Transactor = (*Memory)(nil)
)

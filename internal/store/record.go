package store

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Record is one row keyed by column name.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the column is present and non-null.
func (r Record) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

// Int64 returns the column as int64, 0 when null or not numeric.
func (r Record) Int64(col string) int64 {
	v, _ := toInt64(r[col])
	return v
}

// OptInt64 returns nil for null columns.
func (r Record) OptInt64(col string) *int64 {
	v, ok := toInt64(r[col])
	if !ok {
		return nil
	}
	return &v
}

// Int returns the column as int.
func (r Record) Int(col string) int {
	return int(r.Int64(col))
}

// IntOr returns def when the column is null.
func (r Record) IntOr(col string, def int) int {
	v, ok := toInt64(r[col])
	if !ok {
		return def
	}
	return int(v)
}

// String returns the column as trimmed text.
func (r Record) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case pgtype.Text:
		if !v.Valid {
			return ""
		}
		return strings.TrimSpace(v.String)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Bool returns the column as bool, false when null.
func (r Record) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case pgtype.Bool:
		return v.Valid && v.Bool
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Decimal returns the column as a decimal, zero when null or unparsable.
func (r Record) Decimal(col string) decimal.Decimal {
	d, _ := toDecimal(r[col])
	return d
}

// Time returns the column as time, zero when null.
func (r Record) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case pgtype.Date:
		if v.Valid {
			return v.Time
		}
	case pgtype.Timestamptz:
		if v.Valid {
			return v.Time
		}
	case pgtype.Timestamp:
		if v.Valid {
			return v.Time
		}
	case string:
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// Map returns a JSON-object column decoded by pgx (jsonb) as a map.
func (r Record) Map(col string) map[string]any {
	if m, ok := r[col].(map[string]any); ok {
		return m
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	case pgtype.Int8:
		return n.Int64, n.Valid
	case pgtype.Int4:
		return int64(n.Int32), n.Valid
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, false
		}
		return *n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int64, int32, int:
		i, _ := toInt64(n)
		return decimal.NewFromInt(i), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case pgtype.Numeric:
		return numericToDecimal(n)
	case driver.Valuer:
		raw, err := n.Value()
		if err != nil {
			return decimal.Zero, false
		}
		return toDecimal(raw)
	default:
		return decimal.Zero, false
	}
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, bool) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, false
	}
	if n.Int == nil {
		return decimal.Zero, true
	}
	return decimal.NewFromBigInt(new(big.Int).Set(n.Int), n.Exp), true
}

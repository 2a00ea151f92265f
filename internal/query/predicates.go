package query

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizedPrice is the numeric reading of the free-text price column: every
// character except digits and dots is stripped, and the remainder is cast only
// when it is a well formed decimal. Anything else reads as NULL, which range
// predicates exclude and price ordering puts last.
const NormalizedPrice = `(CASE WHEN REGEXP_REPLACE(price, '[^0-9.]', '', 'g') ~ '^([0-9]+(\.[0-9]*)?|\.[0-9]+)$' ` +
	`THEN CAST(REGEXP_REPLACE(price, '[^0-9.]', '', 'g') AS NUMERIC) END)`

// Predicate is one condition of a WHERE clause. Values are always bound as parameters.
type Predicate interface {
	appendSQL(sb *strings.Builder, a *args) error
}

type args struct {
	values []interface{}
}

func (a *args) bind(v interface{}) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

// Eq matches a column against a value. Fold compares case-insensitively.
type Eq struct {
	Column Column
	Value  interface{}
	Fold   bool
}

func (p Eq) appendSQL(sb *strings.Builder, a *args) error {
	if err := p.Column.check(); err != nil {
		return err
	}
	if p.Fold {
		fmt.Fprintf(sb, "LOWER(%s) = LOWER(%s)", p.Column, a.bind(p.Value))
		return nil
	}
	fmt.Fprintf(sb, "%s = %s", p.Column, a.bind(p.Value))
	return nil
}

// Attr matches a category_data attribute case-insensitively. Listings without the key never match.
type Attr struct {
	Key   string
	Value string
}

func (p Attr) appendSQL(sb *strings.Builder, a *args) error {
	if p.Key == "" {
		return fmt.Errorf("attribute predicate without key")
	}
	fmt.Fprintf(sb, "LOWER(%s->>%s::text) = LOWER(%s)", ColCategoryData, a.bind(p.Key), a.bind(p.Value))
	return nil
}

// AnyOf matches when any element of an array column equals Value, ignoring case.
type AnyOf struct {
	Column Column
	Value  string
}

func (p AnyOf) appendSQL(sb *strings.Builder, a *args) error {
	if err := p.Column.checkArray(); err != nil {
		return err
	}
	fmt.Fprintf(sb, "EXISTS (SELECT 1 FROM unnest(%s) AS elem WHERE LOWER(elem) = LOWER(%s))", p.Column, a.bind(p.Value))
	return nil
}

// PriceRange bounds NormalizedPrice. Nil bounds are open.
type PriceRange struct {
	Min *float64
	Max *float64
}

func (p PriceRange) appendSQL(sb *strings.Builder, a *args) error {
	switch {
	case p.Min != nil && p.Max != nil:
		fmt.Fprintf(sb, "%s BETWEEN %s::numeric AND %s::numeric", NormalizedPrice, a.bind(formatBound(*p.Min)), a.bind(formatBound(*p.Max)))
	case p.Min != nil:
		fmt.Fprintf(sb, "%s >= %s::numeric", NormalizedPrice, a.bind(formatBound(*p.Min)))
	case p.Max != nil:
		fmt.Fprintf(sb, "%s <= %s::numeric", NormalizedPrice, a.bind(formatBound(*p.Max)))
	default:
		sb.WriteString("TRUE")
	}
	return nil
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TextMatch is a case-insensitive substring match over several text columns,
// category_data attributes and array column elements. Any hit matches.
type TextMatch struct {
	Term         string
	Columns      []Column
	Attrs        []string
	ArrayColumns []Column
}

func (p TextMatch) appendSQL(sb *strings.Builder, a *args) error {
	if len(p.Columns)+len(p.Attrs)+len(p.ArrayColumns) == 0 {
		return fmt.Errorf("text match without targets")
	}
	pattern := a.bind("%" + escapeLike(p.Term) + "%")

	var parts []string
	for _, col := range p.Columns {
		if err := col.check(); err != nil {
			return err
		}
		parts = append(parts, fmt.Sprintf("%s ILIKE %s", col, pattern))
	}
	for _, key := range p.Attrs {
		parts = append(parts, fmt.Sprintf("%s->>%s::text ILIKE %s", ColCategoryData, a.bind(key), pattern))
	}
	for _, col := range p.ArrayColumns {
		if err := col.checkArray(); err != nil {
			return err
		}
		parts = append(parts, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS elem WHERE elem ILIKE %s)", col, pattern))
	}
	sb.WriteString("(" + strings.Join(parts, " OR ") + ")")
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

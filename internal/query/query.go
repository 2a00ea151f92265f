// Package query renders listing reads and writes as parameterized SQL.
//
// Conditions are structured values (Eq, Attr, AnyOf, PriceRange, TextMatch),
// never strings. Only identifiers from the column allow-list are written into
// statement text; everything else travels as a bind parameter.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// Table is the listings table.
const Table = "listings"

// Column is a listings column identifier.
type Column string

const (
	ColID           Column = "id"
	ColTitle        Column = "title"
	ColDescription  Column = "description"
	ColCountrySlug  Column = "country_slug"
	ColCitySlug     Column = "city_slug"
	ColCategorySlug Column = "category_slug"
	ColLocation     Column = "location"
	ColSubCategory  Column = "subcategories"
	ColPrice        Column = "price"
	ColCurrency     Column = "currency"
	ColImages       Column = "images"
	ColContactEmail Column = "contact_email"
	ColContactPhone Column = "contact_phone"
	ColCategoryData Column = "category_data"
	ColStatus       Column = "status"
	ColFeatured     Column = "featured"
	ColViews        Column = "views"
	ColCreatedAt    Column = "created_at"
	ColUpdatedAt    Column = "updated_at"
	ColExpiresAt    Column = "expires_at"
)

// Columns lists every listings column in table order.
var Columns = []Column{
	ColID, ColTitle, ColDescription, ColCountrySlug, ColCitySlug, ColCategorySlug,
	ColLocation, ColSubCategory, ColPrice, ColCurrency, ColImages, ColContactEmail,
	ColContactPhone, ColCategoryData, ColStatus, ColFeatured, ColViews,
	ColCreatedAt, ColUpdatedAt, ColExpiresAt,
}

// insertable are the columns a new listing may set; the rest take table defaults.
var insertable = map[Column]bool{
	ColTitle: true, ColDescription: true, ColCountrySlug: true, ColCitySlug: true,
	ColCategorySlug: true, ColLocation: true, ColSubCategory: true, ColPrice: true,
	ColCurrency: true, ColContactEmail: true, ColContactPhone: true,
	ColCategoryData: true, ColExpiresAt: true,
}

var (
	ErrUnknownColumn       = errors.New("unknown column")
	ErrColumnValueMismatch = errors.New("column and value counts differ")
)

func (c Column) check() error {
	for _, known := range Columns {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownColumn, string(c))
}

func (c Column) checkArray() error {
	if c != ColSubCategory && c != ColImages {
		return fmt.Errorf("%w: %q is not an array column", ErrUnknownColumn, string(c))
	}
	return nil
}

// Order is a result ordering. Every ordering ends with id DESC so pages are stable.
type Order int

const (
	OrderFeatured Order = iota // featured first, newest first
	OrderDate                  // newest first
	OrderPriceAsc              // cheapest first, unparseable prices last
	OrderPriceDesc             // most expensive first, unparseable prices last
)

func (o Order) sql() string {
	switch o {
	case OrderDate:
		return "created_at DESC, id DESC"
	case OrderPriceAsc:
		return NormalizedPrice + " ASC NULLS LAST, id DESC"
	case OrderPriceDesc:
		return NormalizedPrice + " DESC NULLS LAST, id DESC"
	default:
		return "featured DESC, created_at DESC, id DESC"
	}
}

// Select reads listings matching every predicate.
type Select struct {
	Where  []Predicate
	Order  Order
	Limit  int
	Offset int
}

// SQL renders the statement and its bind values.
func (s Select) SQL() (string, []interface{}, error) {
	a := &args{}
	where, err := renderWhere(s.Where, a)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(columnList(Columns))
	sb.WriteString(" FROM " + Table)
	sb.WriteString(where)
	sb.WriteString(" ORDER BY " + s.Order.sql())
	if s.Limit > 0 {
		sb.WriteString(" LIMIT " + a.bind(s.Limit))
	}
	if s.Offset > 0 {
		sb.WriteString(" OFFSET " + a.bind(s.Offset))
	}
	return sb.String(), a.values, nil
}

// Count counts listings matching every predicate.
type Count struct {
	Where []Predicate
}

// SQL renders the statement and its bind values.
func (c Count) SQL() (string, []interface{}, error) {
	a := &args{}
	where, err := renderWhere(c.Where, a)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + Table + where, a.values, nil
}

// Insert adds one listing and returns its id. Columns and Values pair up by index.
type Insert struct {
	Columns []Column
	Values  []interface{}
}

// Set appends a column/value pair.
func (i *Insert) Set(col Column, value interface{}) *Insert {
	i.Columns = append(i.Columns, col)
	i.Values = append(i.Values, value)
	return i
}

// SQL renders the statement. It fails before touching the store when the
// column and value lists disagree, a column is not insertable, or a column repeats.
func (i Insert) SQL() (string, []interface{}, error) {
	if len(i.Columns) != len(i.Values) {
		return "", nil, fmt.Errorf("%w: %d columns, %d values", ErrColumnValueMismatch, len(i.Columns), len(i.Values))
	}
	if len(i.Columns) == 0 {
		return "", nil, fmt.Errorf("%w: nothing to insert", ErrColumnValueMismatch)
	}
	seen := make(map[Column]bool, len(i.Columns))
	a := &args{}
	placeholders := make([]string, len(i.Columns))
	for idx, col := range i.Columns {
		if !insertable[col] {
			return "", nil, fmt.Errorf("%w: %q is not insertable", ErrUnknownColumn, string(col))
		}
		if seen[col] {
			return "", nil, fmt.Errorf("%w: %q set twice", ErrColumnValueMismatch, string(col))
		}
		seen[col] = true
		placeholders[idx] = a.bind(i.Values[idx])
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		Table, columnList(i.Columns), strings.Join(placeholders, ", "))
	return stmt, a.values, nil
}

func renderWhere(preds []Predicate, a *args) (string, error) {
	if len(preds) == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString(" WHERE ")
	for idx, p := range preds {
		if idx > 0 {
			sb.WriteString(" AND ")
		}
		if err := p.appendSQL(&sb, a); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func columnList(cols []Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

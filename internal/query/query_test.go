package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_RendersParameterizedStatement(t *testing.T) {
	min := 100.0
	s := Select{
		Where: []Predicate{
			Eq{Column: ColStatus, Value: "active"},
			Eq{Column: ColCitySlug, Value: "lagos"},
			AnyOf{Column: ColSubCategory, Value: "Electronics"},
			Attr{Key: "condition", Value: "used"},
			PriceRange{Min: &min},
		},
		Order: OrderPriceAsc,
		Limit: 50,
	}

	stmt, args, err := s.SQL()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stmt, "SELECT id, title, description,"))
	assert.Contains(t, stmt, "FROM listings WHERE status = $1 AND city_slug = $2")
	assert.Contains(t, stmt, "EXISTS (SELECT 1 FROM unnest(subcategories) AS elem WHERE LOWER(elem) = LOWER($3))")
	assert.Contains(t, stmt, "LOWER(category_data->>$4::text) = LOWER($5)")
	assert.Contains(t, stmt, NormalizedPrice+" >= $6::numeric")
	assert.Contains(t, stmt, "ORDER BY "+NormalizedPrice+" ASC NULLS LAST, id DESC LIMIT $7")
	assert.NotContains(t, stmt, "OFFSET")
	assert.Equal(t, []interface{}{"active", "lagos", "Electronics", "condition", "used", "100", 50}, args)
}

func TestSelect_UserValuesNeverReachStatementText(t *testing.T) {
	evil := "x'; DROP TABLE listings; --"
	s := Select{
		Where: []Predicate{
			Eq{Column: ColCategorySlug, Value: evil},
			Attr{Key: evil, Value: evil},
			AnyOf{Column: ColSubCategory, Value: evil},
			TextMatch{Term: evil, Columns: []Column{ColTitle}},
		},
	}
	stmt, _, err := s.SQL()
	require.NoError(t, err)
	assert.NotContains(t, stmt, "DROP TABLE")
}

func TestSelect_Orders(t *testing.T) {
	tests := []struct {
		order Order
		want  string
	}{
		{OrderFeatured, "ORDER BY featured DESC, created_at DESC, id DESC"},
		{OrderDate, "ORDER BY created_at DESC, id DESC"},
		{OrderPriceAsc, "ASC NULLS LAST, id DESC"},
		{OrderPriceDesc, "DESC NULLS LAST, id DESC"},
	}
	for _, tt := range tests {
		stmt, _, err := Select{Order: tt.order, Offset: 10}.SQL()
		require.NoError(t, err)
		assert.Contains(t, stmt, tt.want)
		assert.Contains(t, stmt, "OFFSET $1")
		assert.NotContains(t, stmt, "WHERE")
	}
}

func TestSelect_RejectsUnknownColumns(t *testing.T) {
	_, _, err := Select{Where: []Predicate{Eq{Column: Column("1=1; --"), Value: "x"}}}.SQL()
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	_, _, err = Select{Where: []Predicate{AnyOf{Column: ColTitle, Value: "x"}}}.SQL()
	assert.True(t, errors.Is(err, ErrUnknownColumn), "AnyOf needs an array column")
}

func TestPriceRange_Bounds(t *testing.T) {
	lo, hi := 10.5, 200.0
	tests := []struct {
		name string
		p    PriceRange
		want string
		args []interface{}
	}{
		{"both", PriceRange{Min: &lo, Max: &hi}, " BETWEEN $1::numeric AND $2::numeric", []interface{}{"10.5", "200"}},
		{"max only", PriceRange{Max: &hi}, " <= $1::numeric", []interface{}{"200"}},
		{"open", PriceRange{}, "TRUE", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, args, err := Count{Where: []Predicate{tt.p}}.SQL()
			require.NoError(t, err)
			assert.Contains(t, stmt, tt.want)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestTextMatch_EscapesLikeWildcards(t *testing.T) {
	stmt, args, err := Count{Where: []Predicate{TextMatch{
		Term:         "100%_off",
		Columns:      []Column{ColTitle, ColDescription},
		Attrs:        []string{"brand"},
		ArrayColumns: []Column{ColSubCategory},
	}}}.SQL()
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM listings WHERE (title ILIKE $1 OR description ILIKE $1 OR "+
		"category_data->>$2::text ILIKE $1 OR EXISTS (SELECT 1 FROM unnest(subcategories) AS elem WHERE elem ILIKE $1))", stmt)
	assert.Equal(t, []interface{}{`%100\%\_off%`, "brand"}, args)
}

func TestInsert_SQL(t *testing.T) {
	ins := &Insert{}
	ins.Set(ColTitle, "Bike").Set(ColContactEmail, "a@b.co").Set(ColSubCategory, []string{})

	stmt, args, err := ins.SQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO listings (title, contact_email, subcategories) VALUES ($1, $2, $3) RETURNING id", stmt)
	assert.Len(t, args, 3)
}

func TestInsert_Invariants(t *testing.T) {
	_, _, err := Insert{Columns: []Column{ColTitle, ColDescription}, Values: []interface{}{"only one"}}.SQL()
	assert.True(t, errors.Is(err, ErrColumnValueMismatch))

	_, _, err = Insert{}.SQL()
	assert.True(t, errors.Is(err, ErrColumnValueMismatch))

	_, _, err = Insert{Columns: []Column{ColTitle, ColTitle}, Values: []interface{}{"a", "b"}}.SQL()
	assert.True(t, errors.Is(err, ErrColumnValueMismatch))

	_, _, err = Insert{Columns: []Column{ColViews}, Values: []interface{}{100}}.SQL()
	assert.True(t, errors.Is(err, ErrUnknownColumn), "views is not client settable")
}

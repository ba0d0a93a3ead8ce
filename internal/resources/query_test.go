package resources

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcan-api/vulcan-api/internal/schema"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

func contactsDef() schema.TypeDef {
	return schema.TypeDef{
		Name: "contacts",
		Fields: []schema.FieldDef{
			{Name: "full_name", Type: schema.TypeString},
			{Name: "age", Type: schema.TypeInt, Nullable: true},
		},
	}
}

func TestParseQueryDefaults(t *testing.T) {
	q, err := ParseQuery(contactsDef(), url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, defaultPageSize, q.Items)
	assert.Empty(t, q.Filters)
	assert.Nil(t, q.Order)
}

func TestParseQueryFilterPrefixes(t *testing.T) {
	cases := []struct {
		arg   string
		op    string
		value string
	}{
		{"30", OpEq, "30"},
		{"<30", OpLte, "30"},
		{">30", OpGte, "30"},
		{"!30", OpNe, "30"},
		{"-", OpNull, ""},
	}
	for _, tc := range cases {
		q, err := ParseQuery(contactsDef(), url.Values{"age": {tc.arg}})
		require.NoError(t, err)
		require.Len(t, q.Filters, 1)
		assert.Equal(t, Filter{Column: "age", Op: tc.op, Value: tc.value}, q.Filters[0])
	}
}

func TestParseQueryImplicitColumns(t *testing.T) {
	q, err := ParseQuery(contactsDef(), url.Values{"owner": {"1"}, "id": {">5"}})
	require.NoError(t, err)
	assert.Len(t, q.Filters, 2)
}

func TestParseQueryUnknownColumn(t *testing.T) {
	_, err := ParseQuery(contactsDef(), url.Values{"salary": {"100"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestParseQueryOrdering(t *testing.T) {
	q, err := ParseQuery(contactsDef(), url.Values{"order_by": {"age"}})
	require.NoError(t, err)
	require.NotNil(t, q.Order)
	assert.Equal(t, Order{Column: "age"}, *q.Order)

	q, err = ParseQuery(contactsDef(), url.Values{"order_by": {"<age"}})
	require.NoError(t, err)
	assert.Equal(t, Order{Column: "age", Desc: true}, *q.Order)

	q, err = ParseQuery(contactsDef(), url.Values{"order_by": {">age"}})
	require.NoError(t, err)
	assert.Equal(t, Order{Column: "age"}, *q.Order)

	_, err = ParseQuery(contactsDef(), url.Values{"order_by": {"salary"}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestParseQueryPagination(t *testing.T) {
	q, err := ParseQuery(contactsDef(), url.Values{"page": {"3"}, "items": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 10, q.Items)

	_, err = ParseQuery(contactsDef(), url.Values{"page": {"0"}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = ParseQuery(contactsDef(), url.Values{"items": {"nope"}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestLastPage(t *testing.T) {
	assert.Equal(t, 1, LastPage(0, 20))
	assert.Equal(t, 1, LastPage(20, 20))
	assert.Equal(t, 2, LastPage(21, 20))
	assert.Equal(t, 5, LastPage(100, 20))
	assert.Equal(t, 1, LastPage(5, 0))
}

package criteria

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Order":       "order",
		"OrderLine":   "order_line",
		"HTTPRequest": "http_request",
		"UserID":      "user_id",
		"Line2Item":   "line2_item",
		"already":     "already",
	}
	for in, want := range tests {
		assert.Equal(t, want, snakeCase(in), in)
	}
}

type stamps struct {
	CreatedBy string `db:"created_by"`
}

type invoiceLine struct {
	Key    int64 `db:"key" constraints:"primarykey, notnull"`
	Amount *int
	hidden string
	Skip   string `db:"-"`
	stamps
}

type badRef struct {
	ID    int64
	Owner string `ref:"owner_id"`
}

func TestParseEntity(t *testing.T) {
	e, err := newRegistry().entity(reflect.TypeOf(&invoiceLine{}))
	require.NoError(t, err)

	assert.Equal(t, "invoice_line", e.table)
	assert.Equal(t, "key", e.pk.name)
	assert.Equal(t, []string{"primarykey", "notnull"}, e.pk.constraints)

	names := make([]string, len(e.columns))
	for i, c := range e.columns {
		names[i] = c.name
	}
	assert.Equal(t, []string{"key", "amount", "created_by"}, names)
	assert.True(t, e.fields["Amount"].nullable)
	assert.Equal(t, []int{4, 0}, e.fields["CreatedBy"].index)
}

func TestParseEntityRegistryCaches(t *testing.T) {
	r := newRegistry()
	a, err := r.entity(reflect.TypeOf(Order{}))
	require.NoError(t, err)
	b, err := r.entity(reflect.TypeOf(&Order{}))
	require.NoError(t, err)
	assert.Same(t, a, b)

	assert.Equal(t, "orders", a.table)
	require.Contains(t, a.assocs, "Lines")
	assert.True(t, a.assocs["Lines"].many)
	assert.Equal(t, "many", a.assocs["Lines"].kind())
	assert.Equal(t, "one", a.assocs["Customer"].kind())
}

func TestParseEntityInvalidRef(t *testing.T) {
	_, err := newRegistry().entity(reflect.TypeOf(badRef{}))
	assert.ErrorIs(t, err, ErrInvalidAssociation)
}

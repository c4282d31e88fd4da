package models_test

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseLineItems(t *testing.T) {
	raw := datatypes.JSON(`{"pr7":[2,"Denim Jacket",1500,"M","Blue"],"pr3":[1,"Scarf",300],"bad":[1]}`)

	items, err := models.ParseLineItems(raw)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "pr3", items[0].Key)
	assert.Equal(t, "Scarf", items[0].Name)
	assert.Empty(t, items[0].Size)

	assert.Equal(t, "pr7", items[1].Key)
	assert.Equal(t, 2, items[1].Quantity)
	assert.Equal(t, "M", items[1].Size)
	assert.Equal(t, "Blue", items[1].Color)
	assert.Equal(t, 3000, items[1].Subtotal())
}

func TestParseLineItems_Invalid(t *testing.T) {
	_, err := models.ParseLineItems(datatypes.JSON(`not json`))
	assert.Error(t, err)

	items, err := models.ParseLineItems(nil)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderTotals(t *testing.T) {
	order := &models.Order{ItemsJSON: datatypes.JSON(`{"a":[2,"Shirt",400],"b":[3,"Socks",50,"L",7]}`)}
	assert.Equal(t, 5, order.TotalItems())
	assert.Equal(t, 950, order.ItemsTotal())

	broken := &models.Order{ItemsJSON: datatypes.JSON(`{`)}
	assert.Equal(t, 0, broken.TotalItems())
}

func TestStatusVocabulary(t *testing.T) {
	assert.True(t, models.OrderStatusOutForDelivery.Valid())
	assert.False(t, models.OrderStatus("lost").Valid())
	assert.True(t, models.PaymentStatusCODPending.Valid())
	assert.Equal(t, "In Transit", models.StatusTypeInTransit.Label())
	assert.Equal(t, "Cash on Delivery", models.PaymentMethodCOD.Label())
	assert.Equal(t, "Online Payment", models.PaymentMethod("wire").Label())
}

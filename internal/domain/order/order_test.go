package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vision-order-api/internal/classify"
)

func TestNewOrder(t *testing.T) {
	p := NewProduct("Widget", decimal.NewFromInt(10))
	o := NewOrder(p)

	assert.NotEqual(t, uuid.Nil, o.ID)
	require.Len(t, o.Products, 1)
	assert.Equal(t, p.ID, o.Products[0].ID)
	assert.False(t, o.CreatedAt.IsZero())
	assert.False(t, o.UpdatedAt.Before(o.CreatedAt), "UpdatedAt must never precede CreatedAt")
}

func TestAddProduct_Idempotent(t *testing.T) {
	o := NewOrder()
	p := NewProduct("Widget", decimal.NewFromInt(10))

	require.True(t, o.AddProduct(p))
	firstUpdate := o.UpdatedAt

	// Same ID again: no growth, no timestamp bump.
	time.Sleep(time.Millisecond)
	require.False(t, o.AddProduct(p))

	require.Len(t, o.Products, 1)
	assert.Equal(t, p.ID, o.Products[0].ID)
	assert.Equal(t, firstUpdate, o.UpdatedAt)
}

func TestAddProduct_DistinctIDs(t *testing.T) {
	o := NewOrder()
	a := NewProduct("A", decimal.NewFromInt(10))
	b := NewProduct("B", decimal.NewFromInt(20))

	require.True(t, o.AddProduct(a))
	require.True(t, o.AddProduct(b))

	require.Len(t, o.Products, 2)
	// Insertion order preserved.
	assert.Equal(t, a.ID, o.Products[0].ID)
	assert.Equal(t, b.ID, o.Products[1].ID)
	assert.False(t, o.UpdatedAt.Before(o.CreatedAt))
}

func TestBill(t *testing.T) {
	tests := []struct {
		name   string
		prices []string
		want   string
	}{
		{name: "empty order", prices: nil, want: "0"},
		{name: "single product", prices: []string{"10"}, want: "10"},
		{name: "two products", prices: []string{"10", "20"}, want: "30"},
		{name: "fractional prices", prices: []string{"0.1", "0.2"}, want: "0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrder()
			for i, p := range tt.prices {
				o.AddProduct(NewProduct(string(rune('A'+i)), decimal.RequireFromString(p)))
			}
			assert.True(t, o.Bill().Equal(decimal.RequireFromString(tt.want)),
				"bill = %s, want %s", o.Bill(), tt.want)
		})
	}
}

func TestBill_RecomputedAfterMutation(t *testing.T) {
	o := NewOrder(NewProduct("A", decimal.NewFromInt(10)))
	require.True(t, o.Bill().Equal(decimal.NewFromInt(10)))

	o.AddProduct(NewProduct("B", decimal.NewFromInt(20)))
	assert.True(t, o.Bill().Equal(decimal.NewFromInt(30)))
}

func TestNewInferenceProduct(t *testing.T) {
	result := []classify.Prediction{
		{Label: "tabby cat", Score: 0.92},
		{Label: "tiger cat", Score: 0.05},
	}
	p := NewInferenceProduct(result)

	assert.Equal(t, "inference_image_product", p.Name)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, result, p.Result)

	// Each call mints a fresh identity.
	q := NewInferenceProduct(result)
	assert.NotEqual(t, p.ID, q.ID)
}

package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderAssignsReferenceKey(t *testing.T) {
	order, err := NewOrder("office chairs", decimal.NewFromFloat(100.00))
	require.NoError(t, err)

	assert.NotEmpty(t, order.ReferenceKey)
	assert.Equal(t, "office chairs", order.Description)
	assert.True(t, order.Total.Equal(decimal.NewFromFloat(100.00)))

	other, err := NewOrder("office chairs", decimal.NewFromFloat(100.00))
	require.NoError(t, err)
	assert.NotEqual(t, order.ReferenceKey, other.ReferenceKey)
}

func TestNewOrderRejectsNegativeTotal(t *testing.T) {
	_, err := NewOrder("bad", decimal.NewFromFloat(-1.00))
	assert.ErrorIs(t, err, ErrNegativeTotal)
}

func TestNewOrderRejectsEmptyDescription(t *testing.T) {
	_, err := NewOrder("", decimal.NewFromFloat(10.00))
	assert.Error(t, err)
}

func TestNewOrderAllowsZeroTotal(t *testing.T) {
	order, err := NewOrder("free sample", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, order.Total.IsZero())
}

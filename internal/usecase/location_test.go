package usecase_test

import (
	"context"
	"testing"

	"github.com/rs-labo46/ec-order-api/internal/gateway"
	"github.com/rs-labo46/ec-order-api/internal/testutil"
	"github.com/rs-labo46/ec-order-api/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationUsecase_QuoteFee(t *testing.T) {
	ctx := context.Background()
	ship := testutil.NewFakeShipping(32000)
	uc := usecase.NewLocationUsecase(ship, 15000)

	out, err := uc.QuoteFee(ctx, usecase.ShippingFeeInput{DistrictID: 1442, WardCode: "20101", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, usecase.ShippingFeeOutput{ShippingFee: 32000}, out)

	ship.FeeErr = gateway.ErrUnavailable
	out, err = uc.QuoteFee(ctx, usecase.ShippingFeeInput{DistrictID: 1442, WardCode: "20101"})
	require.NoError(t, err)
	assert.Equal(t, usecase.ShippingFeeOutput{ShippingFee: 15000, IsDefault: true}, out)

	_, err = uc.QuoteFee(ctx, usecase.ShippingFeeInput{DistrictID: 1442})
	assertKind(t, err, usecase.ErrValidation)
}

func TestLocationUsecase_Lookups(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewLocationUsecase(testutil.NewFakeShipping(0), 15000)

	provinces, err := uc.Provinces(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, provinces)

	districts, err := uc.Districts(ctx, 202)
	require.NoError(t, err)
	require.Len(t, districts, 1)
	assert.Equal(t, 202, districts[0].ProvinceID)

	wards, err := uc.Wards(ctx, 1442)
	require.NoError(t, err)
	require.Len(t, wards, 1)
	assert.Equal(t, "20101", wards[0].Code)

	_, err = uc.Districts(ctx, 0)
	assertKind(t, err, usecase.ErrValidation)
	_, err = uc.Wards(ctx, -1)
	assertKind(t, err, usecase.ErrValidation)
}

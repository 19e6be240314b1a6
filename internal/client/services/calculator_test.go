package services

import (
	"context"
	"errors"
	"testing"

	"github.com/carbonx-dev/carbonx/internal/client/client"
	"github.com/carbonx-dev/carbonx/internal/client/router"
	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_SendsTokenAndOperands(t *testing.T) {
	cache := newCache(t)
	tok := loggedIn(t, cache, root)
	want := &client.CalculateResponse{Result: 15, Calculation: client.Calculation{Num1: 5, Num2: 3, Operation: "add", Description: "5 + 3 = 5 * 3 = 15"}}
	fc := &fakeClient{CalcRet: want}
	svc := NewCalculatorService(fc, cache, nil)

	got, err := svc.Calculate(context.Background(), 5, 3, " ADD ")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, tok, fc.LastToken)
	assert.Equal(t, client.CalculateRequest{Num1: 5, Num2: 3, Operation: "add"}, fc.LastCalc)
}

func TestCalculate_WithoutSession(t *testing.T) {
	fc := &fakeClient{}
	svc := NewCalculatorService(fc, newCache(t), nil)

	_, err := svc.Calculate(context.Background(), 1, 2, "add")
	var re *RedirectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, router.PathLogin, re.Target)
	assert.Empty(t, fc.LastToken, "no request without a session")
}

func TestCalculate_ForbiddenPointsToOwnDashboard(t *testing.T) {
	cache := newCache(t)
	loggedIn(t, cache, alice)
	fc := &fakeClient{CalcErr: &client.APIError{StatusCode: 403, Code: "forbidden", Msg: "Access denied"}}
	svc := NewCalculatorService(fc, cache, nil)

	_, err := svc.Calculate(context.Background(), 1, 2, "multiply")
	require.ErrorIs(t, err, common.ErrForbidden)
	var re *RedirectError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, router.PathUserDashboard, re.Target)

	s, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s, "forbidden keeps the session")
}

func TestCalculate_UnauthenticatedClearsSession(t *testing.T) {
	cache := newCache(t)
	loggedIn(t, cache, root)
	fc := &fakeClient{CalcErr: &client.APIError{StatusCode: 401, Code: "unauthenticated"}}
	svc := NewCalculatorService(fc, cache, nil)

	_, err := svc.Calculate(context.Background(), 1, 2, "add")
	require.ErrorIs(t, err, common.ErrUnauthenticated)

	s, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestCalculate_EmptyOperation(t *testing.T) {
	svc := NewCalculatorService(&fakeClient{}, newCache(t), nil)

	_, err := svc.Calculate(context.Background(), 1, 2, " ")
	require.ErrorIs(t, err, common.ErrValidation)
}

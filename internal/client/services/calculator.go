package services

import (
	"context"
	"strings"

	"github.com/carbonx-dev/carbonx/internal/client/client"
	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/logging"
)

// CalculatorService calls the admin-only calculator with the cached token.
type CalculatorService interface {
	Calculate(ctx context.Context, num1, num2 float64, operation string) (*client.CalculateResponse, error)
}

type calculatorService struct {
	client   client.Client
	sessions SessionStore
	logger   logging.Logger
}

func NewCalculatorService(c client.Client, sessions SessionStore, logger logging.Logger) CalculatorService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &calculatorService{client: c, sessions: sessions, logger: logger.With("module", "calculator")}
}

func (c *calculatorService) Calculate(ctx context.Context, num1, num2 float64, operation string) (*client.CalculateResponse, error) {
	operation = strings.ToLower(strings.TrimSpace(operation))
	if operation == "" {
		return nil, common.NewValidationError("operation", "Invalid operation")
	}

	s, err := requireSession(ctx, c.sessions)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Calculate(ctx, s.Token, client.CalculateRequest{Num1: num1, Num2: num2, Operation: operation})
	if err != nil {
		return nil, handleAPIError(ctx, c.sessions, c.logger, s, err)
	}
	return resp, nil
}

package cli

import (
	"context"
	"math"
	"strconv"

	"github.com/carbonx-dev/carbonx/internal/common"
)

// Calc parses `<num1> <operation> <num2>` and calls the calculator.
func (a *App) Calc(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return a.fail(ctx, common.NewValidationError("args", "Usage: calc <num1> <add|multiply> <num2>"))
	}

	num1, err1 := strconv.ParseFloat(args[0], 64)
	num2, err2 := strconv.ParseFloat(args[2], 64)
	if err1 != nil || err2 != nil || !finite(num1) || !finite(num2) {
		return a.fail(ctx, common.NewValidationError("num", "Invalid input numbers"))
	}

	resp, err := a.calcService.Calculate(ctx, num1, num2, args[1])
	if err != nil {
		return a.fail(ctx, err)
	}

	a.printf("%s\nresult: %s\n", resp.Calculation.Description, strconv.FormatFloat(resp.Result, 'f', -1, 64))
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

package api

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
)

// LambdaHandler adapts the runner to an AWS Lambda invocation carrying a RunRequest
func LambdaHandler(runner Runner) func(ctx context.Context, req RunRequest) (RunResponse, error) {
	v := validator.New()
	return func(ctx context.Context, req RunRequest) (RunResponse, error) {
		return execute(ctx, runner, v, req, time.Now())
	}
}

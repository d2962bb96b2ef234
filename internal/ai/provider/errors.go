package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimeout indicates a provider call exceeded its deadline.
var ErrTimeout = errors.New("provider call timed out")

// ErrUnavailable indicates the provider could not be reached at all.
var ErrUnavailable = errors.New("provider unavailable")

// ProviderError wraps a vendor API failure, carrying the vendor's error code
// where available.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s provider error (%s): %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// wrapErr classifies a vendor call error as a timeout or provider error.
func wrapErr(providerName string, code string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, providerName)
	}
	return &ProviderError{
		Provider: providerName,
		Code:     code,
		Message:  err.Error(),
		Err:      err,
	}
}

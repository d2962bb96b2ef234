package dispatch

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownAction is returned when an execute_action names no known domain
// operation.
var ErrUnknownAction = errors.New("unknown action")

// DomainService is the domain-mutation surface the executor drives. Each
// method receives the extracted entities and returns a wire-ready result.
type DomainService interface {
	CreateGoal(ctx context.Context, userID string, entities map[string]string) (any, error)
	CreateTask(ctx context.Context, userID string, entities map[string]string) (any, error)
	CreateProject(ctx context.Context, userID string, entities map[string]string) (any, error)
	UpdateSettings(ctx context.Context, userID string, entities map[string]string) (any, error)
	RateLifeArea(ctx context.Context, userID string, entities map[string]string) (any, error)
}

// ExecutionResult wraps a performed domain mutation.
type ExecutionResult struct {
	Action string `json:"action"`
	Result any    `json:"result"`
}

// Executor performs execute_action steps against the domain service.
type Executor struct {
	domain DomainService
}

// NewExecutor creates an executor.
func NewExecutor(domain DomainService) *Executor {
	return &Executor{domain: domain}
}

// Execute performs one execute_action. Callers filter to that action type.
func (e *Executor) Execute(ctx context.Context, userID string, action Action) (*ExecutionResult, error) {
	var (
		result any
		err    error
	)
	switch action.Action {
	case "create_goal":
		result, err = e.domain.CreateGoal(ctx, userID, action.Entities)
	case "create_task":
		result, err = e.domain.CreateTask(ctx, userID, action.Entities)
	case "create_project":
		result, err = e.domain.CreateProject(ctx, userID, action.Entities)
	case "update_settings":
		result, err = e.domain.UpdateSettings(ctx, userID, action.Entities)
	case "rate_life_area":
		result, err = e.domain.RateLifeArea(ctx, userID, action.Entities)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action.Action)
	}
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{Action: action.Action, Result: result}, nil
}

// Package service implements the offline-first batch synchronization engine:
// ordered batch apply with optimistic concurrency, a versioned delta feed,
// and manual conflict resolution.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/northstarhq/northstar/internal/common/logger"
	"github.com/northstarhq/northstar/internal/events"
	"github.com/northstarhq/northstar/internal/events/bus"
	"github.com/northstarhq/northstar/internal/sync/models"
	"github.com/northstarhq/northstar/internal/sync/version"
)

// ErrUnknownType is returned when a request names an unregistered object type.
var ErrUnknownType = errors.New("unknown object type")

const (
	defaultDeltaPageLimit = 500
	// statusScanLimit bounds the per-type scan behind GET /sync/status.
	statusScanLimit = 100000
	// recentWindow is the lookback for the recent_changes counter.
	recentWindow = 24 * time.Hour
)

// Service coordinates batch apply, the delta feed and conflict resolution
// across the registered object types.
type Service struct {
	handlers   map[string]Handler
	order      []string
	clock      *version.Clock
	bus        bus.EventBus
	deltaLimit int
	logger     *logger.Logger
	now        func() time.Time
}

// NewService builds the sync engine over the given type handlers. eventBus
// may be nil in tests.
func NewService(clock *version.Clock, eventBus bus.EventBus, deltaLimit int, log *logger.Logger, handlers ...Handler) *Service {
	if deltaLimit <= 0 {
		deltaLimit = defaultDeltaPageLimit
	}
	s := &Service{
		handlers:   make(map[string]Handler, len(handlers)),
		clock:      clock,
		bus:        eventBus,
		deltaLimit: deltaLimit,
		logger:     log.WithFields(zap.String("component", "sync-service")),
		now:        time.Now,
	}
	for _, h := range handlers {
		s.handlers[h.Type()] = h
		s.order = append(s.order, h.Type())
	}
	sort.Strings(s.order)
	return s
}

// ApplyBatch applies the operations in request order. Each operation gets
// its own outcome; a conflict or error never aborts the rest of the batch.
func (s *Service) ApplyBatch(ctx context.Context, userID string, req models.BatchRequest) (*models.BatchResult, error) {
	result := &models.BatchResult{
		Results: make([]models.OperationResult, 0, len(req.Operations)),
	}
	for _, op := range req.Operations {
		r := s.applyOne(ctx, userID, op)
		switch r.Status {
		case models.StatusSuccess:
			result.Applied++
		case models.StatusConflict:
			result.Conflicts++
			s.publish(ctx, events.SyncConflict, map[string]interface{}{
				"user_id":        userID,
				"object_id":      op.ObjectID,
				"object_type":    op.ObjectType,
				"server_version": r.NewVersion,
			})
		default:
			result.Errors++
		}
		result.Results = append(result.Results, r)
	}
	s.publish(ctx, events.SyncBatchApplied, map[string]interface{}{
		"user_id":   userID,
		"client_id": req.ClientID,
		"applied":   result.Applied,
		"conflicts": result.Conflicts,
		"errors":    result.Errors,
	})
	return result, nil
}

func (s *Service) applyOne(ctx context.Context, userID string, op models.Operation) models.OperationResult {
	handler, ok := s.handlers[op.ObjectType]
	if !ok {
		return errorResult(op.ObjectID, fmt.Sprintf("Unknown object type: %s", op.ObjectType))
	}
	if op.ObjectID == "" {
		return errorResult(op.ObjectID, "object_id is required")
	}

	switch op.Operation {
	case models.OpCreate:
		return s.write(ctx, userID, handler, op.ObjectID, op.Data, false)

	case models.OpUpdate:
		current, err := handler.Get(ctx, userID, op.ObjectID)
		if errors.Is(err, ErrNotFound) {
			if op.IfMatchVersion != nil {
				return errorResult(op.ObjectID, "object not found")
			}
			// Offline-first: an unconditional update of an unseen
			// object is a create.
			return s.write(ctx, userID, handler, op.ObjectID, op.Data, false)
		}
		if err != nil {
			return s.internalError(op.ObjectID, "failed to load object", err)
		}
		if r, conflicted := s.versionCheck(op, current); conflicted {
			return r
		}
		return s.write(ctx, userID, handler, op.ObjectID, op.Data, false)

	case models.OpDelete:
		current, err := handler.Get(ctx, userID, op.ObjectID)
		if errors.Is(err, ErrNotFound) {
			return errorResult(op.ObjectID, "object not found")
		}
		if err != nil {
			return s.internalError(op.ObjectID, "failed to load object", err)
		}
		if r, conflicted := s.versionCheck(op, current); conflicted {
			return r
		}
		return s.write(ctx, userID, handler, op.ObjectID, current.Data, true)

	default:
		return errorResult(op.ObjectID, fmt.Sprintf("unknown operation: %s", op.Operation))
	}
}

// versionCheck enforces optimistic concurrency. Omitting if_match_version
// makes the write unconditional.
func (s *Service) versionCheck(op models.Operation, current *models.SyncObject) (models.OperationResult, bool) {
	if op.IfMatchVersion == nil || *op.IfMatchVersion == current.Version {
		return models.OperationResult{}, false
	}
	return models.OperationResult{
		ObjectID:   op.ObjectID,
		Status:     models.StatusConflict,
		NewVersion: current.Version,
		ServerData: current.Data,
	}, true
}

func (s *Service) write(ctx context.Context, userID string, handler Handler, objectID string, data json.RawMessage, deleted bool) models.OperationResult {
	obj := &models.SyncObject{
		ObjectID:   objectID,
		ObjectType: handler.Type(),
		Data:       data,
		Version:    s.clock.Next(),
		Deleted:    deleted,
	}
	if err := handler.Apply(ctx, userID, obj, s.now().UTC()); err != nil {
		return errorResult(objectID, err.Error())
	}
	return models.OperationResult{
		ObjectID:   objectID,
		Status:     models.StatusSuccess,
		NewVersion: obj.Version,
	}
}

func (s *Service) internalError(objectID, msg string, err error) models.OperationResult {
	s.logger.Error(msg, zap.String("object_id", objectID), zap.Error(err))
	return errorResult(objectID, msg)
}

func errorResult(objectID, msg string) models.OperationResult {
	return models.OperationResult{
		ObjectID:     objectID,
		Status:       models.StatusError,
		ErrorMessage: msg,
	}
}

// Delta returns one page of changes with version > since, oldest first,
// across the requested object types (all types when empty).
func (s *Service) Delta(ctx context.Context, userID string, since int64, types []string) (*models.DeltaResponse, error) {
	names, err := s.resolveTypes(types)
	if err != nil {
		return nil, err
	}

	var changes []models.SyncObject
	for _, name := range names {
		// One extra row per type tells us whether anything was cut off.
		page, err := s.handlers[name].Since(ctx, userID, since, s.deltaLimit+1)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s changes: %w", name, err)
		}
		changes = append(changes, page...)
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Version < changes[j].Version
	})

	hasMore := false
	if len(changes) > s.deltaLimit {
		changes = changes[:s.deltaLimit]
		hasMore = true
	}
	cursor := since
	if len(changes) > 0 {
		cursor = changes[len(changes)-1].Version
	}
	return &models.DeltaResponse{
		Changes:          changes,
		CurrentTimestamp: cursor,
		HasMore:          hasMore,
	}, nil
}

// Status summarizes each object type: how many live objects the user has and
// how many changed in the last day.
func (s *Service) Status(ctx context.Context, userID string) (map[string]models.TypeStatus, error) {
	cutoff := s.now().Add(-recentWindow).UnixMilli()
	out := make(map[string]models.TypeStatus, len(s.order))
	for _, name := range s.order {
		objs, err := s.handlers[name].Since(ctx, userID, 0, statusScanLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", name, err)
		}
		var st models.TypeStatus
		for _, o := range objs {
			if !o.Deleted {
				st.TotalObjects++
			}
			if o.Version > cutoff {
				st.RecentChanges++
			}
		}
		out[name] = st
	}
	return out, nil
}

// ResolveConflict writes the client's merged data unconditionally under a
// fresh version.
func (s *Service) ResolveConflict(ctx context.Context, userID, objectID, objectType string, data json.RawMessage) (*models.ResolveResult, error) {
	handler, ok := s.handlers[objectType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, objectType)
	}
	r := s.write(ctx, userID, handler, objectID, data, false)
	if r.Status != models.StatusSuccess {
		return nil, errors.New(r.ErrorMessage)
	}
	s.publish(ctx, events.SyncConflictSolved, map[string]interface{}{
		"user_id":     userID,
		"object_id":   objectID,
		"object_type": objectType,
		"new_version": r.NewVersion,
	})
	return &models.ResolveResult{
		Status:     "resolved",
		ObjectID:   objectID,
		NewVersion: r.NewVersion,
	}, nil
}

func (s *Service) resolveTypes(types []string) ([]string, error) {
	if len(types) == 0 {
		return s.order, nil
	}
	out := make([]string, 0, len(types))
	for _, t := range types {
		if _, ok := s.handlers[t]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
		}
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, eventType, bus.NewEvent(eventType, "sync-service", payload)); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
	}
}

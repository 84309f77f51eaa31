// Package service is the entry point to the QA Desk core.
//
// Every operation resolves the actor's capabilities in the target project,
// checks them, runs the status gate and link graph, persists and emits events
// inside a single store transaction bounded by the operation timeout. Any
// failure, the timeout included, leaves the store unchanged.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/qadesk/internal/access"
	"github.com/mesh-intelligence/qadesk/internal/links"
	"github.com/mesh-intelligence/qadesk/internal/notify"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// DefaultTimeout bounds each operation when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Service implements the core operations over a types.Store.
type Service struct {
	store   types.Store
	links   *links.Manager
	sink    notify.Sink
	log     *zap.Logger
	timeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithSink sets the event sink. The default is notify.Recorder.
func WithSink(sink notify.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithTimeout sets the per-operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxNestingDepth sets the task parent chain limit. Zero or less removes
// the limit.
func WithMaxNestingDepth(depth int) Option {
	return func(s *Service) { s.links.MaxDepth = depth }
}

// New returns a Service over an attached store.
func New(store types.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		links:   links.NewManager(links.DefaultMaxDepth),
		sink:    notify.Recorder{},
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scope is the authorization context of one operation.
type scope struct {
	actor   types.Actor
	project *types.Project
	role    types.Role
	caps    types.CapabilitySet
}

func (sc *scope) require(c types.Capability, op string) error {
	return access.Require(sc.caps, c, op)
}

// loadScope reads the project and resolves the actor's capabilities. The
// effective role is the membership role; a non-member gets no capabilities.
func loadScope(tx types.Tx, actor types.Actor, projectID string) (*scope, error) {
	project, err := tx.Projects().Get(projectID)
	if err != nil {
		return nil, err
	}
	role, caps := access.ForActor(project, actor.ID)
	return &scope{actor: actor, project: project, role: role, caps: caps}, nil
}

// update runs fn in a write transaction within the operation timeout.
func (s *Service) update(ctx context.Context, op string, actor types.Actor, projectID string, fn func(tx types.Tx, sc *scope) error) error {
	return s.run(ctx, true, op, actor, projectID, fn)
}

// view runs fn in a read transaction within the operation timeout.
func (s *Service) view(ctx context.Context, op string, actor types.Actor, projectID string, fn func(tx types.Tx, sc *scope) error) error {
	return s.run(ctx, false, op, actor, projectID, fn)
}

func (s *Service) run(ctx context.Context, write bool, op string, actor types.Actor, projectID string, fn func(tx types.Tx, sc *scope) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body := func(tx types.Tx) error {
		var sc *scope
		if projectID != "" {
			var err error
			if sc, err = loadScope(tx, actor, projectID); err != nil {
				return err
			}
		} else {
			sc = &scope{actor: actor, role: types.RoleNone}
		}
		return fn(tx, sc)
	}

	var err error
	if write {
		err = s.store.Update(ctx, body)
	} else {
		err = s.store.View(ctx, body)
	}

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("actor", actor.ID),
		zap.String("project", projectID),
	}
	if err != nil {
		s.log.Warn("operation failed", append(fields, zap.Error(err))...)
		return err
	}
	if write {
		s.log.Debug("operation committed", fields...)
	}
	return nil
}

// emit forwards ev to the sink inside the current transaction.
func (s *Service) emit(tx types.Tx, sc *scope, kind types.EventKind, subjectType types.SubjectType, subjectID, title, message string) error {
	return s.sink.Emit(tx, types.Event{
		Kind:         kind,
		ProjectID:    sc.project.ID,
		SubjectType:  subjectType,
		SubjectID:    subjectID,
		SubjectTitle: title,
		ActorID:      sc.actor.ID,
		Message:      message,
	})
}

// checkVersion rejects a patch made against a stale read. Zero skips the
// check.
func checkVersion(op string, expected int64, meta *types.Meta) error {
	if expected != 0 && expected != meta.Version {
		return types.Conflict(op, "record changed since it was read")
	}
	return nil
}

// inProject loads a record and hides records of other projects.
func inProject[R types.Record](table types.Table[R], kind, projectID, id string) (R, error) {
	var zero R
	rec, err := table.Get(id)
	if err != nil {
		return zero, err
	}
	if rec.Scope() != projectID {
		return zero, types.NotFound(kind, id)
	}
	return rec, nil
}

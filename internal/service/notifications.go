package service

import (
	"context"

	"github.com/mesh-intelligence/qadesk/internal/notify"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// ListNotifications returns the actor's notifications in a project.
func (s *Service) ListNotifications(ctx context.Context, actor types.Actor, projectID string, unreadOnly bool) ([]*types.Notification, error) {
	var out []*types.Notification
	err := s.view(ctx, "list notifications", actor, projectID, func(tx types.Tx, _ *scope) error {
		var err error
		out, err = notify.Inbox(tx, projectID, actor.ID, unreadOnly)
		return err
	})
	return out, err
}

// MarkNotificationRead marks one of the actor's notifications read.
func (s *Service) MarkNotificationRead(ctx context.Context, actor types.Actor, notificationID string) (*types.Notification, error) {
	var out *types.Notification
	err := s.update(ctx, "mark notification read", actor, "", func(tx types.Tx, _ *scope) error {
		var err error
		out, err = notify.MarkRead(tx, actor.ID, notificationID)
		return err
	})
	return out, err
}

// Package opssvc serves the operator queue-status view.
package opssvc

import (
	"context"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
)

type OutboxCounter interface {
	CountBacklog(ctx context.Context) (model.OutboxBacklog, error)
}

type NotificationCounter interface {
	CountUnsent(ctx context.Context) (int64, error)
}

type QueueStatus struct {
	Outbox              model.OutboxBacklog `json:"outbox"`
	NotificationsUnsent int64               `json:"notifications_unsent"`
}

type Service struct {
	outbox OutboxCounter
	notif  NotificationCounter
}

func New(outbox OutboxCounter, notif NotificationCounter) *Service {
	return &Service{outbox: outbox, notif: notif}
}

func (s *Service) QueueStatus(ctx context.Context) (QueueStatus, error) {
	backlog, err := s.outbox.CountBacklog(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	unsent, err := s.notif.CountUnsent(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	return QueueStatus{Outbox: backlog, NotificationsUnsent: unsent}, nil
}

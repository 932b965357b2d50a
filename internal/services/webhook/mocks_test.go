package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/magabrotheeeer/buscaaqui/internal/asaas"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/stretchr/testify/mock"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) SaveWebhookEvent(ctx context.Context, event, objectID string, payload json.RawMessage) (int64, error) {
	args := m.Called(ctx, event, objectID, payload)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) MarkWebhookEventProcessed(ctx context.Context, id int64, processingError string) error {
	args := m.Called(ctx, id, processingError)
	return args.Error(0)
}

func (m *RepoMock) UpsertPayment(ctx context.Context, p models.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *RepoMock) GetGatewaySubscription(ctx context.Context, id string) (*models.GatewaySubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GatewaySubscription), args.Error(1)
}

func (m *RepoMock) UpsertGatewaySubscription(ctx context.Context, g models.GatewaySubscription) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *RepoMock) SetGatewaySubscriptionStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *RepoMock) SetStatusByGatewaySubscription(ctx context.Context, id, status string) (int64, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) GetUser(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) GetActiveSubscription(ctx context.Context, uid string) (*models.Subscription, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) SetSubscriptionStatus(ctx context.Context, id int64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type ReconcilerMock struct{ mock.Mock }

func (m *ReconcilerMock) ReconcileUser(ctx context.Context, uid string) (*models.ReconcileReport, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReconcileReport), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Notify(ctx context.Context, n models.Notification) {
	m.Called(ctx, n)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) GetSubscription(ctx context.Context, id string) (*asaas.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asaas.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

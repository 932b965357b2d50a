package services

import (
	"context"
	"errors"
	"testing"

	"github.com/magabrotheeeer/buscaaqui/internal/asaas"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/signature"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

type deps struct {
	repo       *RepoMock
	reconciler *ReconcilerMock
	notifier   *NotifierMock
	gateway    *GatewayMock
}

func newDeps() deps {
	return deps{
		repo:       new(RepoMock),
		reconciler: new(ReconcilerMock),
		notifier:   new(NotifierMock),
		gateway:    new(GatewayMock),
	}
}

func (d deps) service() *WebhookService {
	return NewWebhookService(d.repo, d.reconciler, d.notifier, d.gateway, testSecret, newNoopLogger())
}

func (d deps) assert(t *testing.T) {
	d.repo.AssertExpectations(t)
	d.reconciler.AssertExpectations(t)
	d.notifier.AssertExpectations(t)
	d.gateway.AssertExpectations(t)
}

func asaasSubscription(id, reference string) *asaas.Subscription {
	return &asaas.Subscription{
		ID:                id,
		Status:            "ACTIVE",
		Value:             29.9,
		NextDueDate:       "2025-06-01",
		ExternalReference: reference,
		DateCreated:       "2025-05-01",
	}
}

func TestWebhookService_Verify(t *testing.T) {
	body := []byte(`{"event":"PAYMENT_RECEIVED"}`)
	s := newDeps().service()

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{name: "valid signature", header: signature.Sign(testSecret, body)},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong secret", header: signature.Sign("other", body), wantErr: true},
		{name: "garbage", header: "sha256=zz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Verify(body, tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrUnauthorized)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWebhookService_Handle_MalformedBody(t *testing.T) {
	for _, body := range []string{`{"event":`, `{"payment":{"id":"p1"}}`} {
		d := newDeps()
		err := d.service().Handle(context.Background(), []byte(body))
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		d.assert(t)
	}
}

func TestWebhookService_Handle_SaveFails(t *testing.T) {
	d := newDeps()
	d.repo.On("SaveWebhookEvent", mock.Anything, "PAYMENT_CREATED", "p1", mock.Anything).
		Return(int64(0), errors.New("db down")).Once()

	err := d.service().Handle(context.Background(), []byte(`{"event":"PAYMENT_CREATED","payment":{"id":"p1"}}`))
	assert.ErrorContains(t, err, "db down")
	d.assert(t)
}

func TestWebhookService_Handle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMocks func(d deps)
	}{
		{
			name: "payment received activates mirror, reconciles and notifies",
			body: `{"event":"PAYMENT_RECEIVED","payment":{"id":"p1","customer":"cus_1","subscription":"s1",` +
				`"billingType":"PIX","status":"RECEIVED","value":149.9,"paymentDate":"2025-05-20","invoiceUrl":"https://pay/p1"}}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "PAYMENT_RECEIVED", "p1", mock.Anything).Return(int64(1), nil).Once()
				d.repo.On("GetGatewaySubscription", mock.Anything, "s1").
					Return(&models.GatewaySubscription{GatewaySubscriptionID: "s1", UserUID: "u-1", PlanCode: "BUSINESS_PLUS"}, nil).Once()
				d.repo.On("UpsertPayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
					return p.GatewayPaymentID == "p1" && p.UserUID == "u-1" && p.ValueCents == 14990 &&
						p.PaidAt != nil && p.InvoiceURL == "https://pay/p1"
				})).Return(nil).Once()
				d.repo.On("UpsertGatewaySubscription", mock.Anything, mock.MatchedBy(func(g models.GatewaySubscription) bool {
					return g.GatewaySubscriptionID == "s1" && g.Status == models.GatewayActive && g.UserUID == "u-1"
				})).Return(nil).Once()
				d.reconciler.On("ReconcileUser", mock.Anything, "u-1").Return(&models.ReconcileReport{
					Results: []models.ReconcileResult{{GatewaySubscriptionID: "s1", Outcome: models.OutcomeCreated, Success: true}},
				}, nil).Once()
				d.repo.On("GetUser", mock.Anything, "u-1").Return(&models.User{UID: "u-1", Email: "ana@example.com", Name: "Ana"}, nil).Once()
				d.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
					return n.Type == models.NotificationPaymentConfirmed && n.Email == "ana@example.com" &&
						n.Data["value"] == "149.90"
				})).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(1), "").Return(nil).Once()
			},
		},
		{
			name: "payment for unknown mirror loads plan code from gateway",
			body: `{"event":"PAYMENT_CONFIRMED","payment":{"id":"p2","customer":"cus_2","subscription":"s2","status":"CONFIRMED","value":29.9}}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "PAYMENT_CONFIRMED", "p2", mock.Anything).Return(int64(2), nil).Once()
				d.repo.On("GetGatewaySubscription", mock.Anything, "s2").Return(nil, models.ErrNotFound).Once()
				d.repo.On("GetUserByCustomerID", mock.Anything, "cus_2").Return(&models.User{UID: "u-2"}, nil).Once()
				d.repo.On("UpsertPayment", mock.Anything, mock.Anything).Return(nil).Once()
				d.gateway.On("GetSubscription", mock.Anything, "s2").Return(asaasSubscription("s2", "BASIC"), nil).Once()
				d.repo.On("UpsertGatewaySubscription", mock.Anything, mock.MatchedBy(func(g models.GatewaySubscription) bool {
					return g.PlanCode == "BASIC" && g.UserUID == "u-2" && g.StartedAt != nil
				})).Return(nil).Once()
				d.reconciler.On("ReconcileUser", mock.Anything, "u-2").Return(&models.ReconcileReport{}, nil).Once()
				d.repo.On("GetUser", mock.Anything, "u-2").Return(&models.User{UID: "u-2", Email: "bia@example.com"}, nil).Once()
				d.notifier.On("Notify", mock.Anything, mock.Anything).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(2), "").Return(nil).Once()
			},
		},
		{
			name: "reconcile failure is recorded on the event",
			body: `{"event":"PAYMENT_RECEIVED","payment":{"id":"p3","customer":"cus_1","subscription":"s1","status":"RECEIVED"}}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "PAYMENT_RECEIVED", "p3", mock.Anything).Return(int64(3), nil).Once()
				d.repo.On("GetGatewaySubscription", mock.Anything, "s1").
					Return(&models.GatewaySubscription{GatewaySubscriptionID: "s1", UserUID: "u-1"}, nil).Once()
				d.repo.On("UpsertPayment", mock.Anything, mock.Anything).Return(nil).Once()
				d.repo.On("UpsertGatewaySubscription", mock.Anything, mock.Anything).Return(nil).Once()
				d.reconciler.On("ReconcileUser", mock.Anything, "u-1").Return(nil, errors.New("plans unavailable")).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(3), "plans unavailable").Return(nil).Once()
			},
		},
		{
			name: "settled payment without user is recorded as error",
			body: `{"event":"PAYMENT_RECEIVED","payment":{"id":"p4","customer":"cus_x","subscription":"s9","status":"RECEIVED"}}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "PAYMENT_RECEIVED", "p4", mock.Anything).Return(int64(4), nil).Once()
				d.repo.On("GetGatewaySubscription", mock.Anything, "s9").
					Return(&models.GatewaySubscription{GatewaySubscriptionID: "s9"}, nil).Once()
				d.repo.On("GetUserByCustomerID", mock.Anything, "cus_x").Return(nil, models.ErrNotFound).Once()
				d.repo.On("UpsertPayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
					return p.UserUID == ""
				})).Return(nil).Once()
				d.repo.On("UpsertGatewaySubscription", mock.Anything, mock.Anything).Return(nil).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(4), `no user for gateway customer "cus_x"`).Return(nil).Once()
			},
		},
		{
			name: "overdue payment marks mirror and local subscription",
			body: `{"event":"PAYMENT_OVERDUE","payment":{"id":"p5","customer":"cus_1","subscription":"s1","status":"OVERDUE"}}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "PAYMENT_OVERDUE", "p5", mock.Anything).Return(int64(5), nil).Once()
				d.repo.On("GetGatewaySubscription", mock.Anything, "s1").
					Return(&models.GatewaySubscription{GatewaySubscriptionID: "s1", UserUID: "u-1"}, nil).Once()
				d.repo.On("UpsertPayment", mock.Anything, mock.Anything).Return(nil).Once()
				d.repo.On("SetGatewaySubscriptionStatus", mock.Anything, "s1", models.GatewayOverdue).Return(nil).Once()
				d.repo.On("GetActiveSubscription", mock.Anything, "u-1").Return(&models.Subscription{ID: 9}, nil).Once()
				d.repo.On("SetSubscriptionStatus", mock.Anything, int64(9), models.SubscriptionPastDue).Return(nil).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(5), "").Return(nil).Once()
			},
		},
		{
			name: "subscription created upserts mirror with plan code",
			body: `{"event":"SUBSCRIPTION_CREATED","subscription":{"id":"s3","customer":"cus_3","status":"ACTIVE",` +
				`"billingType":"UNDEFINED","value":79.9,"externalReference":"BUSINESS","dateCreated":"2025-05-01"}}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "SUBSCRIPTION_CREATED", "s3", mock.Anything).Return(int64(6), nil).Once()
				d.repo.On("GetUserByCustomerID", mock.Anything, "cus_3").Return(&models.User{UID: "u-3"}, nil).Once()
				d.repo.On("GetGatewaySubscription", mock.Anything, "s3").Return(nil, models.ErrNotFound).Once()
				d.repo.On("UpsertGatewaySubscription", mock.Anything, mock.MatchedBy(func(g models.GatewaySubscription) bool {
					return g.GatewaySubscriptionID == "s3" && g.PlanCode == "BUSINESS" && g.UserUID == "u-3" &&
						g.Status == models.GatewayPending && g.BillingType == models.BillingBoleto && g.ValueCents == 7990
				})).Return(nil).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(6), "").Return(nil).Once()
			},
		},
		{
			name: "subscription updated keeps mirror activated by payment",
			body: `{"event":"SUBSCRIPTION_UPDATED","subscription":{"id":"s1","customer":"cus_1","status":"ACTIVE","value":149.9}}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "SUBSCRIPTION_UPDATED", "s1", mock.Anything).Return(int64(11), nil).Once()
				d.repo.On("GetUserByCustomerID", mock.Anything, "cus_1").Return(&models.User{UID: "u-1"}, nil).Once()
				d.repo.On("GetGatewaySubscription", mock.Anything, "s1").
					Return(&models.GatewaySubscription{GatewaySubscriptionID: "s1", Status: models.GatewayActive}, nil).Once()
				d.repo.On("UpsertGatewaySubscription", mock.Anything, mock.MatchedBy(func(g models.GatewaySubscription) bool {
					return g.GatewaySubscriptionID == "s1" && g.Status == models.GatewayActive
				})).Return(nil).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(11), "").Return(nil).Once()
			},
		},
		{
			name: "payment without customer takes it from gateway subscription",
			body: `{"event":"PAYMENT_RECEIVED","payment":{"id":"p7","subscription":"s7","status":"RECEIVED","value":29.9}}`,
			setupMocks: func(d deps) {
				remote := asaasSubscription("s7", "BASIC")
				remote.Customer = "cus_7"
				d.repo.On("SaveWebhookEvent", mock.Anything, "PAYMENT_RECEIVED", "p7", mock.Anything).Return(int64(12), nil).Once()
				d.repo.On("GetGatewaySubscription", mock.Anything, "s7").Return(nil, models.ErrNotFound).Once()
				d.gateway.On("GetSubscription", mock.Anything, "s7").Return(remote, nil).Once()
				d.repo.On("GetUserByCustomerID", mock.Anything, "cus_7").Return(&models.User{UID: "u-7"}, nil).Once()
				d.repo.On("UpsertPayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
					return p.GatewayPaymentID == "p7" && p.UserUID == "u-7"
				})).Return(nil).Once()
				d.repo.On("UpsertGatewaySubscription", mock.Anything, mock.MatchedBy(func(g models.GatewaySubscription) bool {
					return g.GatewaySubscriptionID == "s7" && g.GatewayCustomerID == "cus_7" && g.UserUID == "u-7" &&
						g.PlanCode == "BASIC" && g.Status == models.GatewayActive
				})).Return(nil).Once()
				d.reconciler.On("ReconcileUser", mock.Anything, "u-7").Return(&models.ReconcileReport{}, nil).Once()
				d.repo.On("GetUser", mock.Anything, "u-7").Return(&models.User{UID: "u-7", Email: "caio@example.com"}, nil).Once()
				d.notifier.On("Notify", mock.Anything, mock.Anything).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(12), "").Return(nil).Once()
			},
		},
		{
			name: "subscription deleted cancels local rows",
			body: `{"event":"SUBSCRIPTION_DELETED","subscription":{"id":"s1","customer":"cus_1","deleted":true}}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "SUBSCRIPTION_DELETED", "s1", mock.Anything).Return(int64(7), nil).Once()
				d.repo.On("SetGatewaySubscriptionStatus", mock.Anything, "s1", models.GatewayDeleted).Return(nil).Once()
				d.repo.On("SetStatusByGatewaySubscription", mock.Anything, "s1", models.SubscriptionCancelled).Return(int64(1), nil).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(7), "").Return(nil).Once()
			},
		},
		{
			name: "subscription inactivated for unknown mirror creates it",
			body: `{"event":"SUBSCRIPTION_INACTIVATED","subscription":{"id":"s4","customer":"cus_4"}}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "SUBSCRIPTION_INACTIVATED", "s4", mock.Anything).Return(int64(8), nil).Once()
				d.repo.On("SetGatewaySubscriptionStatus", mock.Anything, "s4", models.GatewayInactive).Return(models.ErrNotFound).Once()
				d.repo.On("UpsertGatewaySubscription", mock.Anything, mock.MatchedBy(func(g models.GatewaySubscription) bool {
					return g.GatewaySubscriptionID == "s4" && g.Status == models.GatewayInactive
				})).Return(nil).Once()
				d.repo.On("SetStatusByGatewaySubscription", mock.Anything, "s4", models.SubscriptionCancelled).Return(int64(0), nil).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(8), "").Return(nil).Once()
			},
		},
		{
			name: "other events are stored and ignored",
			body: `{"event":"INVOICE_CREATED"}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "INVOICE_CREATED", "", mock.Anything).Return(int64(9), nil).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(9), "").Return(nil).Once()
			},
		},
		{
			name: "payment event without payment object",
			body: `{"event":"PAYMENT_RECEIVED"}`,
			setupMocks: func(d deps) {
				d.repo.On("SaveWebhookEvent", mock.Anything, "PAYMENT_RECEIVED", "", mock.Anything).Return(int64(10), nil).Once()
				d.repo.On("MarkWebhookEventProcessed", mock.Anything, int64(10), "payment object is missing").Return(nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDeps()
			tt.setupMocks(d)

			err := d.service().Handle(context.Background(), []byte(tt.body))
			require.NoError(t, err)
			d.assert(t)
		})
	}
}

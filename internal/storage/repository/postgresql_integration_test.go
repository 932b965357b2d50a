package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

func TestStorage_Users(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()

	created, err := storage.CreateUser(ctx, models.User{
		UID:          uuid.NewString(),
		Email:        "Loja@Mail.com",
		Name:         "Loja do Zé",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		AccountType:  models.AccountBusiness,
		BusinessName: "Loja do Zé",
	})
	require.NoError(t, err)
	assert.Equal(t, "Loja do Zé", created.BusinessName)

	_, err = storage.CreateUser(ctx, models.User{
		UID: uuid.NewString(), Email: "Loja@Mail.com", Name: "dup", PasswordHash: "h",
		Role: models.RoleUser, AccountType: models.AccountPersonal,
	})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	byEmail, err := storage.GetUserByEmail(ctx, "loja@mail.com")
	require.NoError(t, err)
	assert.Equal(t, created.UID, byEmail.UID)

	city := "Barra do Corda"
	updated, err := storage.UpdateProfile(ctx, created.UID, models.ProfileUpdate{City: &city})
	require.NoError(t, err)
	assert.Equal(t, city, updated.City)
	assert.Equal(t, "Loja do Zé", updated.Name)

	require.NoError(t, storage.SetGatewayCustomerID(ctx, created.UID, "cus_1"))
	byCustomer, err := storage.GetUserByCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, created.UID, byCustomer.UID)

	_, err = storage.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, storage.DeleteUser(ctx, created.UID))
	assert.ErrorIs(t, storage.DeleteUser(ctx, created.UID), models.ErrNotFound)
}

func TestStorage_ListAds(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	uid := factory.CreateUser(t, "seller@mail.com")
	vehicles := factory.CategoryID(t, "veiculos")
	electronics := factory.CategoryID(t, "eletronicos")

	factory.CreateAd(t, uid, vehicles, "Moto Honda 150", 900000, models.AdApproved)
	factory.CreateAd(t, uid, vehicles, "Carro popular", 2500000, models.AdApproved)
	factory.CreateAd(t, uid, electronics, "Celular usado 50%", 50000, models.AdApproved)
	factory.CreateAd(t, uid, electronics, "Notebook", 300000, models.AdPending)
	highlighted := factory.CreateAd(t, uid, vehicles, "Bicicleta", 40000, models.AdApproved)
	require.NoError(t, storage.SetAdHighlight(ctx, highlighted.ID, time.Now().Add(time.Hour)))

	minPrice, maxPrice := int64(100000), int64(1000000)

	tests := []struct {
		name      string
		filter    models.AdFilter
		wantTitle []string
		wantTotal int
	}{
		{
			name:      "approved only, highlighted first",
			filter:    models.AdFilter{Status: models.AdApproved},
			wantTitle: []string{"Bicicleta", "Celular usado 50%", "Carro popular", "Moto Honda 150"},
			wantTotal: 4,
		},
		{
			name:      "category and price range",
			filter:    models.AdFilter{Status: models.AdApproved, CategoryID: vehicles, MinPrice: &minPrice, MaxPrice: &maxPrice},
			wantTitle: []string{"Moto Honda 150"},
			wantTotal: 1,
		},
		{
			name:      "text search is case-insensitive",
			filter:    models.AdFilter{Query: "MOTO"},
			wantTitle: []string{"Moto Honda 150"},
			wantTotal: 1,
		},
		{
			name:      "percent sign is literal",
			filter:    models.AdFilter{Query: "50%"},
			wantTitle: []string{"Celular usado 50%"},
			wantTotal: 1,
		},
		{
			name:      "pagination keeps total",
			filter:    models.AdFilter{Status: models.AdApproved, Page: models.Page{Limit: 2, Offset: 1}},
			wantTitle: []string{"Celular usado 50%", "Carro popular"},
			wantTotal: 4,
		},
		{
			name:      "city filter",
			filter:    models.AdFilter{City: "barra do corda", Status: models.AdPending},
			wantTitle: []string{"Notebook"},
			wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ads, total, err := storage.ListAds(ctx, tt.filter)
			require.NoError(t, err)
			titles := make([]string, 0, len(ads))
			for _, a := range ads {
				titles = append(titles, a.Title)
			}
			assert.Equal(t, tt.wantTitle, titles)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestStorage_AdLifecycle(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	uid := factory.CreateUser(t, "owner@mail.com")
	ad := factory.CreateAd(t, uid, factory.CategoryID(t, "servicos"), "Pintor", 10000, models.AdPending)
	assert.Equal(t, []string{"https://cdn.buscaaqui.test/1.jpg"}, ad.Photos)

	n, err := storage.CountUserAds(ctx, uid, []string{models.AdPending, models.AdApproved})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, storage.SetAdStatus(ctx, ad.ID, models.AdApproved, "", &past))

	expired, err := storage.ExpireAds(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []int64{ad.ID}, expired)

	got, err := storage.GetAd(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdExpired, got.Status)

	got.Title = "Pintor residencial"
	got.Status = models.AdPending
	updated, err := storage.UpdateAdContent(ctx, *got)
	require.NoError(t, err)
	assert.Equal(t, "Pintor residencial", updated.Title)
	assert.Equal(t, models.AdPending, updated.Status)

	require.NoError(t, storage.DeleteAd(ctx, ad.ID))
	_, err = storage.GetAd(ctx, ad.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStorage_UpsertSubscription(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	uid := factory.CreateUser(t, "sub@mail.com")
	planIDs, err := storage.PlanIDs(ctx)
	require.NoError(t, err)
	require.Len(t, planIDs, 4)

	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	sub := models.Subscription{
		UserUID:               uid,
		PlanID:                planIDs[models.PlanBasic],
		Status:                models.SubscriptionActive,
		BillingType:           models.BillingPix,
		GatewaySubscriptionID: "sub_1",
		StartsAt:              start,
		EndsAt:                start.AddDate(0, 0, 30),
	}

	id, created, err := storage.UpsertSubscription(ctx, sub)
	require.NoError(t, err)
	assert.True(t, created)

	sub.PlanID = planIDs[models.PlanBusinessPlus]
	id2, created, err := storage.UpsertSubscription(ctx, sub)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, id2)
	assert.Equal(t, 1, factory.CountRows(t, "subscriptions"))

	active, err := storage.GetActiveSubscription(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.PlanBusinessPlus, active.PlanSlug)
	assert.Equal(t, "sub_1", active.GatewaySubscriptionID)

	n, err := storage.SetStatusByGatewaySubscription(ctx, "sub_1", models.SubscriptionCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = storage.GetActiveSubscription(ctx, uid)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStorage_ExpireAndExpiringSubscriptions(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()
	planIDs, err := storage.PlanIDs(ctx)
	require.NoError(t, err)

	now := time.Now().UTC()
	oldUID := factory.CreateUser(t, "old@mail.com")
	soonUID := factory.CreateUser(t, "soon@mail.com")

	_, _, err = storage.UpsertSubscription(ctx, models.Subscription{
		UserUID: oldUID, PlanID: planIDs[models.PlanBasic], Status: models.SubscriptionPastDue,
		BillingType: models.BillingBoleto, GatewaySubscriptionID: "sub_old",
		StartsAt: now.AddDate(0, 0, -40), EndsAt: now.AddDate(0, 0, -10),
	})
	require.NoError(t, err)
	_, _, err = storage.UpsertSubscription(ctx, models.Subscription{
		UserUID: soonUID, PlanID: planIDs[models.PlanBusiness], Status: models.SubscriptionActive,
		BillingType: models.BillingPix, GatewaySubscriptionID: "sub_soon",
		StartsAt: now.AddDate(0, 0, -29), EndsAt: now.Add(20 * time.Hour),
	})
	require.NoError(t, err)

	expiring, err := storage.ListExpiringSubscriptions(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "soon@mail.com", expiring[0].Email)
	assert.Equal(t, "Profissional", expiring[0].PlanName)

	n, err := storage.ExpireSubscriptions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStorage_GatewaySubscriptions(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	uid := factory.CreateUser(t, "gw@mail.com")
	require.NoError(t, storage.SetGatewayCustomerID(ctx, uid, "cus_9"))

	started := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, storage.UpsertGatewaySubscription(ctx, models.GatewaySubscription{
		GatewaySubscriptionID: "sub_9",
		GatewayCustomerID:     "cus_9",
		PlanCode:              "BUSINESS",
		Status:                models.GatewayActive,
		BillingType:           models.BillingPix,
		ValueCents:            7990,
		StartedAt:             &started,
	}))

	later := started.AddDate(0, 1, 0)
	require.NoError(t, storage.UpsertGatewaySubscription(ctx, models.GatewaySubscription{
		GatewaySubscriptionID: "sub_9",
		Status:                models.GatewayOverdue,
		StartedAt:             &later,
	}))

	g, err := storage.GetGatewaySubscription(ctx, "sub_9")
	require.NoError(t, err)
	assert.Equal(t, "BUSINESS", g.PlanCode)
	assert.Equal(t, "cus_9", g.GatewayCustomerID)
	assert.Equal(t, models.GatewayOverdue, g.Status)
	assert.Equal(t, int64(7990), g.ValueCents)
	require.NotNil(t, g.StartedAt)
	assert.True(t, started.Equal(*g.StartedAt))

	byUser, err := storage.ListGatewaySubscriptionsByUser(ctx, uid)
	require.NoError(t, err)
	require.Len(t, byUser, 1)

	assert.ErrorIs(t, storage.SetGatewaySubscriptionStatus(ctx, "missing", models.GatewayActive), models.ErrNotFound)
}

func TestStorage_PaymentsAndWebhookEvents(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	uid := factory.CreateUser(t, "pay@mail.com")
	paid := time.Now().UTC()
	require.NoError(t, storage.UpsertPayment(ctx, models.Payment{
		GatewayPaymentID: "pay_1", GatewaySubscriptionID: "sub_1", UserUID: uid,
		BillingType: models.BillingPix, Status: models.PaymentPending, ValueCents: 2990,
		InvoiceURL: "https://asaas.test/i/1",
	}))
	require.NoError(t, storage.UpsertPayment(ctx, models.Payment{
		GatewayPaymentID: "pay_1", Status: models.PaymentReceived, ValueCents: 2990, PaidAt: &paid,
	}))

	payments, err := storage.ListPaymentsByUser(ctx, uid, models.Page{})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentReceived, payments[0].Status)
	assert.Equal(t, "https://asaas.test/i/1", payments[0].InvoiceURL)
	assert.Equal(t, "sub_1", payments[0].GatewaySubscriptionID)

	stats, err := storage.Stats(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2990), stats.ReceivedLast30DaysCents)
	assert.Equal(t, 1, stats.UsersByAccountType[models.AccountPersonal])

	payload := json.RawMessage(`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_1"}}`)
	id, err := storage.SaveWebhookEvent(ctx, "PAYMENT_RECEIVED", "pay_1", payload)
	require.NoError(t, err)
	require.NoError(t, storage.MarkWebhookEventProcessed(ctx, id, "user not found"))

	event, err := storage.GetWebhookEvent(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(event.Payload))
	assert.Equal(t, "user not found", event.ProcessingError)
	assert.NotNil(t, event.ProcessedAt)
}

func TestStorage_Reports(t *testing.T) {
	storage := setupTestDatabase(t)
	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	uid := factory.CreateUser(t, "rep@mail.com")
	admin := factory.CreateUser(t, "admin@mail.com")
	ad := factory.CreateAd(t, uid, factory.CategoryID(t, "imoveis"), "Casa", 1, models.AdApproved)

	anon, err := storage.CreateReport(ctx, models.Report{AdID: ad.ID, Reason: "fraud"})
	require.NoError(t, err)
	assert.Empty(t, anon.ReporterUID)
	assert.Equal(t, models.ReportOpen, anon.Status)

	_, err = storage.CreateReport(ctx, models.Report{AdID: ad.ID + 1000, Reason: "spam", ReporterUID: uid})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	open, err := storage.ListReports(ctx, models.ReportOpen, models.Page{})
	require.NoError(t, err)
	assert.Len(t, open, 1)

	resolved, err := storage.ResolveReport(ctx, anon.ID, models.ReportResolved, "removido", admin, time.Now())
	require.NoError(t, err)
	assert.Equal(t, admin, resolved.ReviewedBy)

	_, err = storage.ResolveReport(ctx, anon.ID, models.ReportDismissed, "", admin, time.Now())
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = storage.ResolveReport(ctx, 999999, models.ReportDismissed, "", admin, time.Now())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

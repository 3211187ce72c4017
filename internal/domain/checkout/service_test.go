package checkout

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karibushop/storefront/internal/domain/coupon"
	"github.com/karibushop/storefront/internal/domain/order"
)

type mockGateway struct {
	createParams  *CreateSessionParams
	session       *Session
	retrieved     *Session
	discountCalls []int
}

func (m *mockGateway) CreateSession(_ context.Context, params CreateSessionParams) (*Session, error) {
	m.createParams = &params
	if m.session != nil {
		return m.session, nil
	}
	return &Session{ID: "cs_test_123"}, nil
}

func (m *mockGateway) RetrieveSession(_ context.Context, sessionID string) (*Session, error) {
	m.retrieved.ID = sessionID
	return m.retrieved, nil
}

func (m *mockGateway) CreatePercentageDiscount(_ context.Context, percentage int) (string, error) {
	m.discountCalls = append(m.discountCalls, percentage)
	return "disc_1", nil
}

type stubValidator struct {
	coupon *coupon.Coupon
	err    error
}

func (s *stubValidator) Validate(context.Context, string, string) (*coupon.Coupon, error) {
	return s.coupon, s.err
}

type stubIssuer struct {
	issuedFor []string
}

func (s *stubIssuer) IssueGift(_ context.Context, userID string) (*coupon.Coupon, error) {
	s.issuedFor = append(s.issuedFor, userID)
	return &coupon.Coupon{Code: "GIFTABC123", DiscountPercentage: 10}, nil
}

type mockLedger struct {
	coupon.Repository
	deactivated [][2]string
}

func (m *mockLedger) Deactivate(_ context.Context, code, userID string) error {
	m.deactivated = append(m.deactivated, [2]string{code, userID})
	return nil
}

type mockOrders struct {
	created    []*order.Order
	existing   *order.Order
	createErr  error
	// existingAfterCreate makes the duplicate-key retry lookup succeed.
	existingAfterCreate *order.Order
}

func (m *mockOrders) Create(_ context.Context, o *order.Order) error {
	if m.createErr != nil {
		m.existing = m.existingAfterCreate
		return m.createErr
	}
	o.ID = "order-1"
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrders) FindBySessionID(context.Context, string) (*order.Order, error) {
	if m.existing != nil {
		return m.existing, nil
	}
	return nil, order.ErrNotFound
}

func (m *mockOrders) CountAndRevenue(context.Context) (int64, decimal.Decimal, error) {
	return 0, decimal.Zero, nil
}

func (m *mockOrders) SalesByDay(context.Context, time.Time, time.Time) ([]order.DailySales, error) {
	return nil, nil
}

func newTestService(gw *mockGateway, v *stubValidator, iss *stubIssuer, ledger *mockLedger, orders *mockOrders) *Service {
	return NewService(
		Config{
			SuccessURL:         "http://localhost:5173/purchase-success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:          "http://localhost:5173/purchase-cancel",
			GiftThresholdMinor: 200000,
		},
		gw, v, iss, ledger, orders,
	)
}

func cartLines() []CartLine {
	return []CartLine{
		{ProductID: "p1", Name: "Mug", Price: decimal.RequireFromString("10.00"), Quantity: 2},
		{ProductID: "p2", Name: "Sticker", Price: decimal.RequireFromString("5.50"), Quantity: 1},
	}
}

func TestCreateSession_ComputesTotal(t *testing.T) {
	gw := &mockGateway{}
	svc := newTestService(gw, &stubValidator{err: coupon.ErrNotFound}, &stubIssuer{}, &mockLedger{}, &mockOrders{})

	result, err := svc.CreateSession(context.Background(), "user-1", cartLines(), "")
	require.NoError(t, err)

	assert.Equal(t, "cs_test_123", result.SessionID)
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("25.50")), "got %s", result.TotalAmount)

	require.NotNil(t, gw.createParams)
	require.Len(t, gw.createParams.LineItems, 2)
	assert.Equal(t, int64(1000), gw.createParams.LineItems[0].UnitAmount)
	assert.Equal(t, int64(2), gw.createParams.LineItems[0].Quantity)
	assert.Equal(t, int64(550), gw.createParams.LineItems[1].UnitAmount)

	assert.Equal(t, "user-1", gw.createParams.Metadata[MetaUserID])
	assert.Empty(t, gw.createParams.Metadata[MetaCouponCode])
	assert.Empty(t, gw.createParams.DiscountID)
}

func TestCreateSession_SnapshotRoundTrips(t *testing.T) {
	gw := &mockGateway{}
	svc := newTestService(gw, &stubValidator{err: coupon.ErrNotFound}, &stubIssuer{}, &mockLedger{}, &mockOrders{})

	_, err := svc.CreateSession(context.Background(), "user-1", cartLines(), "")
	require.NoError(t, err)

	var snapshot []SnapshotItem
	require.NoError(t, json.Unmarshal([]byte(gw.createParams.Metadata[MetaProducts]), &snapshot))
	require.Len(t, snapshot, 2)
	assert.Equal(t, "p1", snapshot[0].ID)
	assert.Equal(t, 2, snapshot[0].Quantity)
	assert.True(t, snapshot[0].Price.Equal(decimal.RequireFromString("10.00")))
}

func TestCreateSession_AppliesCoupon(t *testing.T) {
	gw := &mockGateway{}
	v := &stubValidator{coupon: &coupon.Coupon{Code: "SAVE20", DiscountPercentage: 20, UserID: "user-1", Active: true}}
	svc := newTestService(gw, v, &stubIssuer{}, &mockLedger{}, &mockOrders{})

	result, err := svc.CreateSession(context.Background(), "user-1", cartLines(), "SAVE20")
	require.NoError(t, err)

	// 2550 minor units less 20% (integer floor) is 2040.
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("20.40")), "got %s", result.TotalAmount)
	assert.Equal(t, []int{20}, gw.discountCalls)
	assert.Equal(t, "disc_1", gw.createParams.DiscountID)
	assert.Equal(t, "SAVE20", gw.createParams.Metadata[MetaCouponCode])
}

func TestCreateSession_UnusableCouponIgnored(t *testing.T) {
	for _, vErr := range []error{coupon.ErrNotFound, coupon.ErrExpired} {
		gw := &mockGateway{}
		svc := newTestService(gw, &stubValidator{err: vErr}, &stubIssuer{}, &mockLedger{}, &mockOrders{})

		result, err := svc.CreateSession(context.Background(), "user-1", cartLines(), "WHATEVER")
		require.NoError(t, err)

		assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("25.50")))
		assert.Empty(t, gw.discountCalls)
		assert.Empty(t, gw.createParams.Metadata[MetaCouponCode])
	}
}

func TestCreateSession_EmptyCart(t *testing.T) {
	svc := newTestService(&mockGateway{}, &stubValidator{}, &stubIssuer{}, &mockLedger{}, &mockOrders{})

	_, err := svc.CreateSession(context.Background(), "user-1", nil, "")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateSession_InvalidLines(t *testing.T) {
	svc := newTestService(&mockGateway{}, &stubValidator{}, &stubIssuer{}, &mockLedger{}, &mockOrders{})

	tests := []struct {
		name string
		line CartLine
	}{
		{"zero quantity", CartLine{ProductID: "p1", Price: decimal.NewFromInt(10), Quantity: 0}},
		{"negative quantity", CartLine{ProductID: "p1", Price: decimal.NewFromInt(10), Quantity: -1}},
		{"negative price", CartLine{ProductID: "p1", Price: decimal.NewFromInt(-1), Quantity: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSession(context.Background(), "user-1", []CartLine{tt.line}, "")
			var invalid *InvalidLineItemError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "p1", invalid.ProductID)
		})
	}
}

func TestCreateSession_GiftCouponAtThreshold(t *testing.T) {
	tests := []struct {
		name   string
		price  string
		issued bool
	}{
		{"below threshold", "1999.99", false},
		{"at threshold", "2000.00", true},
		{"above threshold", "2500.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iss := &stubIssuer{}
			svc := newTestService(&mockGateway{}, &stubValidator{err: coupon.ErrNotFound}, iss, &mockLedger{}, &mockOrders{})

			lines := []CartLine{{ProductID: "p1", Name: "Sofa", Price: decimal.RequireFromString(tt.price), Quantity: 1}}
			_, err := svc.CreateSession(context.Background(), "user-1", lines, "")
			require.NoError(t, err)

			if tt.issued {
				assert.Equal(t, []string{"user-1"}, iss.issuedFor)
			} else {
				assert.Empty(t, iss.issuedFor)
			}
		})
	}
}

func TestCreateSession_GiftThresholdAfterDiscount(t *testing.T) {
	// 2000.00 less 10% lands below the threshold, so no gift is issued.
	iss := &stubIssuer{}
	v := &stubValidator{coupon: &coupon.Coupon{Code: "SAVE10", DiscountPercentage: 10, Active: true}}
	svc := newTestService(&mockGateway{}, v, iss, &mockLedger{}, &mockOrders{})

	lines := []CartLine{{ProductID: "p1", Price: decimal.RequireFromString("2000.00"), Quantity: 1}}
	_, err := svc.CreateSession(context.Background(), "user-1", lines, "SAVE10")
	require.NoError(t, err)

	assert.Empty(t, iss.issuedFor)
}

func TestGiftCouponShape(t *testing.T) {
	iss := coupon.NewRepoIssuer(couponCreateRecorder{})
	c, err := iss.IssueGift(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^GIFT[0-9A-Z]{6}$`), c.Code)
	assert.Equal(t, 10, c.DiscountPercentage)
	assert.True(t, c.Active)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), c.ExpiresAt, time.Minute)
}

type couponCreateRecorder struct {
	coupon.Repository
}

func (couponCreateRecorder) Create(context.Context, *coupon.Coupon) error { return nil }

func paidSession(metadata map[string]string) *Session {
	return &Session{
		PaymentStatus: PaymentStatusPaid,
		AmountTotal:   2040,
		Metadata:      metadata,
	}
}

func confirmMetadata() map[string]string {
	snapshot, _ := json.Marshal([]SnapshotItem{
		{ID: "p1", Price: decimal.RequireFromString("10.00"), Quantity: 2},
		{ID: "p2", Price: decimal.RequireFromString("5.50"), Quantity: 1},
	})
	return map[string]string{
		MetaUserID:     "user-1",
		MetaCouponCode: "SAVE20",
		MetaProducts:   string(snapshot),
	}
}

func TestConfirm_PaidSessionCreatesOrder(t *testing.T) {
	gw := &mockGateway{retrieved: paidSession(confirmMetadata())}
	ledger := &mockLedger{}
	orders := &mockOrders{}
	svc := newTestService(gw, &stubValidator{}, &stubIssuer{}, ledger, orders)

	result, err := svc.Confirm(context.Background(), "cs_test_123")
	require.NoError(t, err)

	assert.Equal(t, "order-1", result.OrderID)
	assert.False(t, result.AlreadyProcessed)

	require.Len(t, orders.created, 1)
	o := orders.created[0]
	assert.Equal(t, "user-1", o.UserID)
	assert.Equal(t, "cs_test_123", o.StripeSessionID)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("20.40")), "got %s", o.TotalAmount)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "p1", o.Items[0].ProductID)
	assert.Equal(t, 2, o.Items[0].Quantity)

	assert.Equal(t, [][2]string{{"SAVE20", "user-1"}}, ledger.deactivated)
}

func TestConfirm_UnpaidSession(t *testing.T) {
	gw := &mockGateway{retrieved: &Session{PaymentStatus: "unpaid", Metadata: confirmMetadata()}}
	orders := &mockOrders{}
	svc := newTestService(gw, &stubValidator{}, &stubIssuer{}, &mockLedger{}, orders)

	_, err := svc.Confirm(context.Background(), "cs_test_123")
	assert.ErrorIs(t, err, ErrPaymentIncomplete)
	assert.Empty(t, orders.created)
}

func TestConfirm_Idempotent(t *testing.T) {
	gw := &mockGateway{retrieved: paidSession(confirmMetadata())}
	orders := &mockOrders{existing: &order.Order{ID: "order-1", StripeSessionID: "cs_test_123"}}
	ledger := &mockLedger{}
	svc := newTestService(gw, &stubValidator{}, &stubIssuer{}, ledger, orders)

	result, err := svc.Confirm(context.Background(), "cs_test_123")
	require.NoError(t, err)

	assert.Equal(t, "order-1", result.OrderID)
	assert.True(t, result.AlreadyProcessed)
	assert.Empty(t, orders.created)
	assert.Empty(t, ledger.deactivated)
}

func TestConfirm_DuplicateSessionRace(t *testing.T) {
	// A concurrent confirmation wins the insert; the unique index surfaces
	// as ErrDuplicateSession and the retry lookup resolves the winner.
	gw := &mockGateway{retrieved: paidSession(confirmMetadata())}
	orders := &mockOrders{
		createErr:           order.ErrDuplicateSession,
		existingAfterCreate: &order.Order{ID: "order-1", StripeSessionID: "cs_test_123"},
	}
	svc := newTestService(gw, &stubValidator{}, &stubIssuer{}, &mockLedger{}, orders)

	result, err := svc.Confirm(context.Background(), "cs_test_123")
	require.NoError(t, err)

	assert.Equal(t, "order-1", result.OrderID)
	assert.True(t, result.AlreadyProcessed)
}

func TestConfirm_NoCouponNoDeactivation(t *testing.T) {
	md := confirmMetadata()
	md[MetaCouponCode] = ""
	gw := &mockGateway{retrieved: paidSession(md)}
	ledger := &mockLedger{}
	svc := newTestService(gw, &stubValidator{}, &stubIssuer{}, ledger, &mockOrders{})

	_, err := svc.Confirm(context.Background(), "cs_test_123")
	require.NoError(t, err)
	assert.Empty(t, ledger.deactivated)
}

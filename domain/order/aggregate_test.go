package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderlife/domain/shared"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder("user-1",
		[]ProductRequest{
			{SKUID: "sku-1", Quantity: 2, UnitPrice: shared.MustMoney(1500, "CNY")},
			{SKUID: "sku-2", Quantity: 1, UnitPrice: shared.MustMoney(500, "CNY")},
		},
		[]PriceRequest{
			{Kind: PriceKindSale, Amount: shared.MustMoney(3500, "CNY"), CanRefund: true},
			{Kind: PriceKindShipping, Amount: shared.MustMoney(800, "CNY")},
		},
		time.Now().Add(30*time.Minute),
		nil,
	)
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t)

	assert.Equal(t, StateInit, o.State())
	assert.Equal(t, int64(3500), o.TotalAmount().Amount())
	assert.Equal(t, "CNY", o.TotalAmount().Currency())
	assert.True(t, o.IsNew())
	assert.NotEmpty(t, o.Serial())
	assert.NotNil(t, o.AutoCancelTime())
	assert.Nil(t, o.ExpireReceiveTime())

	events := o.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventAfterOrderCreated, events[0].EventName())
	assert.Empty(t, o.PullEvents(), "events must be cleared after pull")
}

func TestNewOrderValidation(t *testing.T) {
	_, err := NewOrder("user-1", nil, nil, time.Now(), nil)
	assert.ErrorIs(t, err, ErrEmptyOrderProducts)

	_, err = NewOrder("user-1",
		[]ProductRequest{{SKUID: "sku-1", Quantity: 0, UnitPrice: shared.MustMoney(100, "CNY")}},
		nil, time.Now(), nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewOrder("",
		[]ProductRequest{{SKUID: "sku-1", Quantity: 1, UnitPrice: shared.MustMoney(100, "CNY")}},
		nil, time.Now(), nil)
	assert.Error(t, err)
}

func TestNewOrderCreditPoints(t *testing.T) {
	products := []ProductRequest{{SKUID: "sku-1", Quantity: 1, UnitPrice: shared.MustMoney(100, "CNY")}}

	o, err := NewOrder("user-1", products, nil, time.Now().Add(time.Hour),
		map[string]any{ParamCreditPoints: int64(300)})
	require.NoError(t, err)
	assert.Equal(t, int64(300), o.CreditPoints())

	// Plain int is accepted too.
	o, err = NewOrder("user-1", products, nil, time.Now().Add(time.Hour),
		map[string]any{ParamCreditPoints: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(50), o.CreditPoints())

	rebuilt, err := RebuildFromDTO(o.ToReconstructionDTO())
	require.NoError(t, err)
	assert.Equal(t, int64(50), rebuilt.CreditPoints())

	_, err = NewOrder("user-1", products, nil, time.Now().Add(time.Hour),
		map[string]any{ParamCreditPoints: int64(-1)})
	assert.ErrorIs(t, err, ErrInvalidCreditPoints)

	_, err = NewOrder("user-1", products, nil, time.Now().Add(time.Hour),
		map[string]any{ParamCreditPoints: "lots"})
	assert.ErrorIs(t, err, ErrInvalidCreditPoints)
}

func TestCreationEventCarriesParams(t *testing.T) {
	params := map[string]any{ParamCreditPoints: int64(200), "channel": "app"}
	o, err := NewOrder("user-1",
		[]ProductRequest{{SKUID: "sku-1", Quantity: 1, UnitPrice: shared.MustMoney(100, "CNY")}},
		nil, time.Now().Add(time.Hour), params)
	require.NoError(t, err)

	events := o.PullEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*AfterOrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, params, created.Params())
}

func TestGiftLinesExcludedFromTotal(t *testing.T) {
	o, err := NewOrder("user-1",
		[]ProductRequest{
			{SKUID: "sku-1", Quantity: 1, UnitPrice: shared.MustMoney(1000, "CNY")},
			{SKUID: "sku-gift", Quantity: 1, UnitPrice: shared.MustMoney(9999, "CNY"), Source: SourceCouponGift},
		},
		nil, time.Now().Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), o.TotalAmount().Amount())
}

func TestCancelFromInit(t *testing.T) {
	o := newTestOrder(t)
	o.PullEvents()

	require.NoError(t, o.Cancel("user-1", "changed my mind"))
	assert.Equal(t, StateCanceled, o.State())
	assert.Equal(t, StateInit, o.PreviousState())
	assert.Equal(t, "changed my mind", o.CancelReason())

	events := o.PullEvents()
	require.Len(t, events, 1)
	cancel, ok := events[0].(*AfterOrderCancelEvent)
	require.True(t, ok)
	assert.Equal(t, "changed my mind", cancel.Reason())
	assert.Equal(t, "user-1", cancel.SenderID())
}

func TestCancelIllegalAfterPayment(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkPaid("trade-1", shared.MustMoney(3500, "CNY"), time.Now(), time.Now().Add(7*24*time.Hour)))
	o.PullEvents()

	err := o.Cancel("user-1", "too late")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StatePaid, o.State(), "state must be unchanged after rejected cancel")
	assert.Empty(t, o.PullEvents(), "no event may be recorded for a rejected transition")
}

func TestCancelForTimeoutEmbedsDeadline(t *testing.T) {
	o := newTestOrder(t)
	deadline := o.AutoCancelTime().Format(time.RFC3339)

	require.NoError(t, o.CancelForTimeout("system-1"))
	assert.Contains(t, o.CancelReason(), TimeoutCancelReason)
	assert.Contains(t, o.CancelReason(), deadline)
}

func TestMarkPaid(t *testing.T) {
	o := newTestOrder(t)
	o.PullEvents()
	receiveBy := time.Now().Add(7 * 24 * time.Hour)

	require.NoError(t, o.MarkPaid("trade-9", shared.MustMoney(3500, "CNY"), time.Now(), receiveBy))
	assert.Equal(t, StatePaid, o.State())
	require.NotNil(t, o.PayOrder())
	assert.Equal(t, "trade-9", o.PayOrder().TradeNo())
	require.NotNil(t, o.ExpireReceiveTime())
	assert.True(t, o.ExpireReceiveTime().Equal(receiveBy))

	for _, p := range o.Prices() {
		assert.True(t, p.Paid())
	}

	events := o.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventOrderPaid, events[0].EventName())

	// Paying twice is illegal.
	err := o.MarkPaid("trade-10", shared.MustMoney(3500, "CNY"), time.Now(), receiveBy)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestChangeProductQuantityBeforePayment(t *testing.T) {
	o := newTestOrder(t)
	o.PullEvents()

	require.NoError(t, o.ChangeProductQuantity("sku-1", 3))
	assert.Equal(t, 3, o.Products()[0].Quantity())
	assert.Equal(t, int64(5000), o.TotalAmount().Amount(), "total must follow the new quantity")

	err := o.ChangeProductQuantity("sku-1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	err = o.ChangeProductQuantity("sku-missing", 1)
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestQuantityLockedOncePaid(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkPaid("trade-1", shared.MustMoney(3500, "CNY"), time.Now(), time.Now().Add(time.Hour)))
	o.PullEvents()

	for _, p := range o.Products() {
		assert.True(t, p.StockDeducted(), "payment must freeze every line")
	}

	err := o.ChangeProductQuantity("sku-1", 5)
	assert.ErrorIs(t, err, ErrQuantityLocked)
	assert.Equal(t, 2, o.Products()[0].Quantity())
}

func TestMarkExpiredSkipsTransitionGuard(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.Cancel("user-1", "x"))
	o.PullEvents()

	// Expiry intentionally has no source-state check; eligibility is
	// the caller's query and the optimistic lock is the arbiter.
	o.MarkExpired("system-1")
	assert.Equal(t, StateExpired, o.State())

	events := o.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventAutoExpireOrderState, events[0].EventName())
}

func TestMarkExpiredOwnerlessOrderEmitsNothing(t *testing.T) {
	dto := newTestOrder(t).ToReconstructionDTO()
	dto.UserID = ""
	o, err := RebuildFromDTO(dto)
	require.NoError(t, err)

	o.MarkExpired("system-1")
	assert.Equal(t, StateExpired, o.State())
	assert.Empty(t, o.PullEvents())
}

func TestSupplierFlow(t *testing.T) {
	o := newTestOrder(t)
	o.PullEvents()

	require.NoError(t, o.SubmitForAudit())
	assert.Equal(t, StateAuditing, o.State())

	require.NoError(t, o.AcceptBySupplier("supplier-1"))
	assert.Equal(t, StateAcceptOrder, o.State())

	events := o.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventSupplierOrderReceived, events[0].EventName())

	require.NoError(t, o.ExpireSupplierAccept("system-1"))
	assert.Equal(t, StateExpired, o.State())
}

func TestRejectBySupplier(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.SubmitForAudit())
	require.NoError(t, o.RejectBySupplier("supplier-1"))
	assert.Equal(t, StateRejectOrder, o.State())
	assert.True(t, o.State().IsTerminal())
}

func TestRefundFlow(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkPaid("trade-1", shared.MustMoney(3500, "CNY"), time.Now(), time.Now().Add(time.Hour)))
	o.PullEvents()

	amount, err := o.RefundableAmount()
	require.NoError(t, err)
	assert.Equal(t, int64(3500), amount.Amount(), "shipping is not refundable")

	require.NoError(t, o.MarkPricesRefunded("user-1"))
	events := o.PullEvents()
	require.Len(t, events, 1)
	refund, ok := events[0].(*AfterPriceRefundEvent)
	require.True(t, ok)
	assert.Equal(t, int64(3500), refund.Amount().Amount())

	// Nothing left to refund the second time.
	err = o.MarkPricesRefunded("user-1")
	assert.ErrorIs(t, err, ErrNothingToRefund)
}

func TestRefundBeforePayment(t *testing.T) {
	o := newTestOrder(t)
	err := o.MarkPricesRefunded("user-1")
	assert.ErrorIs(t, err, ErrNothingToRefund)
}

func TestVersionLifecycle(t *testing.T) {
	o := newTestOrder(t)
	assert.Equal(t, 0, o.Version())

	o.ClearNewFlag()
	assert.False(t, o.IsNew())

	o.IncrementVersionForSave()
	assert.Equal(t, 1, o.Version())
}

func TestReconstructionRoundTrip(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkPaid("trade-1", shared.MustMoney(3500, "CNY"), time.Now(), time.Now().Add(time.Hour)))

	dto := o.ToReconstructionDTO()
	rebuilt, err := RebuildFromDTO(dto)
	require.NoError(t, err)

	assert.Equal(t, o.ID(), rebuilt.ID())
	assert.Equal(t, o.Serial(), rebuilt.Serial())
	assert.Equal(t, o.State(), rebuilt.State())
	assert.Equal(t, o.TotalAmount(), rebuilt.TotalAmount())
	assert.Len(t, rebuilt.Products(), 2)
	assert.Len(t, rebuilt.Prices(), 2)
	require.NotNil(t, rebuilt.PayOrder())
	assert.Equal(t, "trade-1", rebuilt.PayOrder().TradeNo())
	assert.False(t, rebuilt.IsNew())
	assert.Empty(t, rebuilt.PullEvents(), "reconstruction must not record events")
}

func TestRebuildRejectsUnknownState(t *testing.T) {
	dto := newTestOrder(t).ToReconstructionDTO()
	dto.State = "LIMBO"
	_, err := RebuildFromDTO(dto)
	assert.Error(t, err)
}

func TestGenerateSerialUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := GenerateSerial()
		assert.False(t, seen[s], "serial %s repeated", s)
		seen[s] = true
	}
}

package order_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/campuskart-backend/internal/order"
	"github.com/vasiliy-maslov/campuskart-backend/internal/token"
)

type fakeStore struct {
	placeAllFunc     func(ctx context.Context, buyerID int64, placements []order.Placement) ([]order.PlacedLine, error)
	getByIDFunc      func(ctx context.Context, orderID string) (*order.Order, error)
	listByBuyerFunc  func(ctx context.Context, buyerID int64) ([]order.BuyerOrder, error)
	listBySellerFunc func(ctx context.Context, sellerID int64) ([]order.SellerSale, error)
	listOpenFunc     func(ctx context.Context) ([]order.OpenOrder, error)
	updateStatusFunc func(ctx context.Context, orderID string, from []order.Status, to order.Status) error
	cancelFunc       func(ctx context.Context, orderID string, from []order.Status) error
	deleteFunc       func(ctx context.Context, orderID string) error
}

func (f *fakeStore) PlaceAll(ctx context.Context, buyerID int64, placements []order.Placement) ([]order.PlacedLine, error) {
	return f.placeAllFunc(ctx, buyerID, placements)
}

func (f *fakeStore) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	return f.getByIDFunc(ctx, orderID)
}

func (f *fakeStore) ListByBuyer(ctx context.Context, buyerID int64) ([]order.BuyerOrder, error) {
	return f.listByBuyerFunc(ctx, buyerID)
}

func (f *fakeStore) ListBySeller(ctx context.Context, sellerID int64) ([]order.SellerSale, error) {
	return f.listBySellerFunc(ctx, sellerID)
}

func (f *fakeStore) ListOpen(ctx context.Context) ([]order.OpenOrder, error) {
	return f.listOpenFunc(ctx)
}

func (f *fakeStore) UpdateStatus(ctx context.Context, orderID string, from []order.Status, to order.Status) error {
	return f.updateStatusFunc(ctx, orderID, from, to)
}

func (f *fakeStore) CancelAndRestock(ctx context.Context, orderID string, from []order.Status) error {
	return f.cancelFunc(ctx, orderID, from)
}

func (f *fakeStore) DeleteAndRestock(ctx context.Context, orderID string) error {
	return f.deleteFunc(ctx, orderID)
}

func TestService_PlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name string
		cart []order.CartLine
	}{
		{name: "nil_cart", cart: nil},
		{name: "empty_cart", cart: []order.CartLine{}},
		{name: "zero_quantity_line", cart: []order.CartLine{{ItemID: 5, Quantity: 0}}},
		{name: "negative_quantity_line", cart: []order.CartLine{{ItemID: 5, Quantity: -1}}},
		{name: "missing_item_id", cart: []order.CartLine{{ItemID: 0, Quantity: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				placeAllFunc: func(ctx context.Context, buyerID int64, placements []order.Placement) ([]order.PlacedLine, error) {
					t.Fatal("store must not be reached on validation failure")
					return nil, nil
				},
			}
			svc := order.NewService(store)

			receipts, err := svc.PlaceOrder(context.Background(), 3, tt.cart, "")
			assert.ErrorIs(t, err, order.ErrEmptyCart)
			assert.Nil(t, receipts)
		})
	}
}

func TestService_PlaceOrder_Success(t *testing.T) {
	var captured []order.Placement

	store := &fakeStore{
		placeAllFunc: func(ctx context.Context, buyerID int64, placements []order.Placement) ([]order.PlacedLine, error) {
			captured = placements
			placed := make([]order.PlacedLine, 0, len(placements))
			names := map[int64]string{5: "Scientific Calculator FX-991", 7: "Desk Lamp"}
			prices := map[int64]float64{5: 600, 7: 350}
			for _, p := range placements {
				placed = append(placed, order.PlacedLine{
					OrderID:      p.OrderID,
					ItemID:       p.ItemID,
					ItemName:     names[p.ItemID],
					PriceCharged: prices[p.ItemID] * float64(p.Quantity),
				})
			}
			return placed, nil
		},
	}
	svc := order.NewService(store)

	cart := []order.CartLine{
		{ItemID: 5, Quantity: 2},
		{ItemID: 7, Quantity: 1},
		{ItemID: 5, Quantity: 1}, // duplicate line, processed independently
	}

	receipts, err := svc.PlaceOrder(context.Background(), 3, cart, "")
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	require.Len(t, captured, 3)

	ids := make(map[string]bool)
	for i, p := range captured {
		assert.True(t, strings.HasPrefix(p.OrderID, "ORD-"), "order id %q", p.OrderID)
		assert.False(t, ids[p.OrderID], "order ids must be unique")
		ids[p.OrderID] = true

		assert.Equal(t, cart[i].ItemID, p.ItemID)
		assert.Equal(t, cart[i].Quantity, p.Quantity)
		assert.Equal(t, order.DefaultPaymentMode, p.PaymentMode)
		assert.Len(t, p.OTPHash, 8)

		// The buyer's plaintext code must verify against the hash the
		// store persisted.
		assert.True(t, token.VerifyDeliveryCode(receipts[i].DeliveryCode, p.OTPHash))
	}

	want := []order.Receipt{
		{OrderID: captured[0].OrderID, ItemID: 5, ItemName: "Scientific Calculator FX-991", PriceCharged: 1200},
		{OrderID: captured[1].OrderID, ItemID: 7, ItemName: "Desk Lamp", PriceCharged: 350},
		{OrderID: captured[2].OrderID, ItemID: 5, ItemName: "Scientific Calculator FX-991", PriceCharged: 600},
	}
	if diff := cmp.Diff(want, receipts, cmpopts.IgnoreFields(order.Receipt{}, "DeliveryCode")); diff != "" {
		t.Errorf("receipts mismatch (-want +got):\n%s", diff)
	}
}

func TestService_PlaceOrder_LineFailurePropagates(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		wantIs   error
	}{
		{
			name:     "insufficient_stock",
			storeErr: fmt.Errorf("cart line 2 (Desk Lamp): %w", order.ErrInsufficientStock),
			wantIs:   order.ErrInsufficientStock,
		},
		{
			name:     "self_purchase",
			storeErr: fmt.Errorf("cart line 1 (Desk Lamp): %w", order.ErrSelfPurchase),
			wantIs:   order.ErrSelfPurchase,
		},
		{
			name:     "item_unavailable",
			storeErr: fmt.Errorf("cart line 1 (item 99): %w", order.ErrItemUnavailable),
			wantIs:   order.ErrItemUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				placeAllFunc: func(ctx context.Context, buyerID int64, placements []order.Placement) ([]order.PlacedLine, error) {
					return nil, tt.storeErr
				},
			}
			svc := order.NewService(store)

			receipts, err := svc.PlaceOrder(context.Background(), 3, []order.CartLine{{ItemID: 5, Quantity: 1}}, "COD")
			assert.ErrorIs(t, err, tt.wantIs)
			// The failing line stays identifiable in the message.
			assert.Contains(t, err.Error(), "cart line")
			assert.Nil(t, receipts)
		})
	}
}

func TestService_CancelOrder(t *testing.T) {
	tests := []struct {
		name        string
		requesterID int64
		existing    *order.Order
		getErr      error
		cancelErr   error
		wantErr     error
		wantCancel  bool
	}{
		{
			name:        "not_found",
			requesterID: 3,
			getErr:      order.ErrOrderNotFound,
			wantErr:     order.ErrOrderNotFound,
		},
		{
			name:        "not_the_buyer",
			requesterID: 4,
			existing:    &order.Order{OrderID: "ORD-AAAA1111", BuyerID: 3, Status: order.StatusPending},
			wantErr:     order.ErrPermissionDenied,
		},
		{
			name:        "already_completed",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-AAAA1111", BuyerID: 3, Status: order.StatusCompleted},
			wantErr:     order.ErrInvalidTransition,
		},
		{
			name:        "already_cancelled",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-AAAA1111", BuyerID: 3, Status: order.StatusCancelled},
			wantErr:     order.ErrInvalidTransition,
		},
		{
			name:        "pending_cancels",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-AAAA1111", BuyerID: 3, Status: order.StatusPending},
			wantCancel:  true,
		},
		{
			name:        "in_transit_cancels",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-AAAA1111", BuyerID: 3, Status: order.StatusInTransit},
			wantCancel:  true,
		},
		{
			name:        "legacy_ready_for_pickup_cancels",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-AAAA1111", BuyerID: 3, Status: order.StatusReadyForPickup},
			wantCancel:  true,
		},
		{
			name:        "lost_race_in_store",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-AAAA1111", BuyerID: 3, Status: order.StatusPending},
			cancelErr:   order.ErrInvalidTransition,
			wantErr:     order.ErrInvalidTransition,
			wantCancel:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cancelCalled := false
			store := &fakeStore{
				getByIDFunc: func(ctx context.Context, orderID string) (*order.Order, error) {
					if tt.getErr != nil {
						return nil, tt.getErr
					}
					return tt.existing, nil
				},
				cancelFunc: func(ctx context.Context, orderID string, from []order.Status) error {
					cancelCalled = true
					assert.Contains(t, from, order.StatusPending)
					assert.Contains(t, from, order.StatusInTransit)
					return tt.cancelErr
				},
			}
			svc := order.NewService(store)

			err := svc.CancelOrder(context.Background(), "ORD-AAAA1111", tt.requesterID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCancel, cancelCalled)
		})
	}
}

func TestService_MarkReceived(t *testing.T) {
	tests := []struct {
		name        string
		requesterID int64
		existing    *order.Order
		wantErr     error
		wantUpdate  bool
	}{
		{
			name:        "not_the_buyer",
			requesterID: 9,
			existing:    &order.Order{OrderID: "ORD-BBBB2222", BuyerID: 3, Status: order.StatusInTransit},
			wantErr:     order.ErrPermissionDenied,
		},
		{
			name:        "already_completed",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-BBBB2222", BuyerID: 3, Status: order.StatusCompleted},
			wantErr:     order.ErrInvalidTransition,
		},
		{
			name:        "already_cancelled",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-BBBB2222", BuyerID: 3, Status: order.StatusCancelled},
			wantErr:     order.ErrInvalidTransition,
		},
		{
			// Buyer receipt confirmation completes without a delivery
			// code, even straight from pending.
			name:        "pending_completes_without_code",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-BBBB2222", BuyerID: 3, Status: order.StatusPending},
			wantUpdate:  true,
		},
		{
			name:        "in_transit_completes",
			requesterID: 3,
			existing:    &order.Order{OrderID: "ORD-BBBB2222", BuyerID: 3, Status: order.StatusInTransit},
			wantUpdate:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updateCalled := false
			store := &fakeStore{
				getByIDFunc: func(ctx context.Context, orderID string) (*order.Order, error) {
					return tt.existing, nil
				},
				updateStatusFunc: func(ctx context.Context, orderID string, from []order.Status, to order.Status) error {
					updateCalled = true
					assert.Equal(t, order.StatusCompleted, to)
					assert.NotContains(t, from, order.StatusCompleted)
					assert.NotContains(t, from, order.StatusCancelled)
					return nil
				},
			}
			svc := order.NewService(store)

			err := svc.MarkReceived(context.Background(), "ORD-BBBB2222", tt.requesterID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantUpdate, updateCalled)
		})
	}
}

func TestService_AdvanceToTransit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := &fakeStore{
			updateStatusFunc: func(ctx context.Context, orderID string, from []order.Status, to order.Status) error {
				assert.Equal(t, []order.Status{order.StatusPending}, from)
				assert.Equal(t, order.StatusInTransit, to)
				return nil
			},
		}
		svc := order.NewService(store)
		assert.NoError(t, svc.AdvanceToTransit(context.Background(), "ORD-CCCC3333"))
	})

	t.Run("wrong_state", func(t *testing.T) {
		store := &fakeStore{
			updateStatusFunc: func(ctx context.Context, orderID string, from []order.Status, to order.Status) error {
				return order.ErrInvalidTransition
			},
		}
		svc := order.NewService(store)
		assert.ErrorIs(t, svc.AdvanceToTransit(context.Background(), "ORD-CCCC3333"), order.ErrInvalidTransition)
	})

	t.Run("not_found", func(t *testing.T) {
		store := &fakeStore{
			updateStatusFunc: func(ctx context.Context, orderID string, from []order.Status, to order.Status) error {
				return order.ErrOrderNotFound
			},
		}
		svc := order.NewService(store)
		assert.ErrorIs(t, svc.AdvanceToTransit(context.Background(), "ORD-MISSING1"), order.ErrOrderNotFound)
	})
}

func TestService_CompleteWithCode(t *testing.T) {
	// sha256("1234")[:8]
	const storedHash = "03ac6742"

	tests := []struct {
		name       string
		existing   *order.Order
		code       string
		wantErr    error
		wantUpdate bool
	}{
		{
			name:     "wrong_code_leaves_order_untouched",
			existing: &order.Order{OrderID: "ORD-DDDD4444", Status: order.StatusInTransit, OTPHash: storedHash},
			code:     "9999",
			wantErr:  order.ErrInvalidDeliveryCode,
		},
		{
			name:     "empty_code_fails_closed",
			existing: &order.Order{OrderID: "ORD-DDDD4444", Status: order.StatusInTransit, OTPHash: storedHash},
			code:     "",
			wantErr:  order.ErrInvalidDeliveryCode,
		},
		{
			name:       "correct_code_completes",
			existing:   &order.Order{OrderID: "ORD-DDDD4444", Status: order.StatusInTransit, OTPHash: storedHash},
			code:       "1234",
			wantUpdate: true,
		},
		{
			name:     "still_pending",
			existing: &order.Order{OrderID: "ORD-DDDD4444", Status: order.StatusPending, OTPHash: storedHash},
			code:     "1234",
			wantErr:  order.ErrInvalidTransition,
		},
		{
			// Re-submission after completion is a transition error, not
			// a code error, even with the right code.
			name:     "resubmission_after_completion",
			existing: &order.Order{OrderID: "ORD-DDDD4444", Status: order.StatusCompleted, OTPHash: storedHash},
			code:     "1234",
			wantErr:  order.ErrInvalidTransition,
		},
		{
			name:     "cancelled_order",
			existing: &order.Order{OrderID: "ORD-DDDD4444", Status: order.StatusCancelled, OTPHash: storedHash},
			code:     "1234",
			wantErr:  order.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updateCalled := false
			store := &fakeStore{
				getByIDFunc: func(ctx context.Context, orderID string) (*order.Order, error) {
					return tt.existing, nil
				},
				updateStatusFunc: func(ctx context.Context, orderID string, from []order.Status, to order.Status) error {
					updateCalled = true
					assert.Equal(t, order.StatusCompleted, to)
					return nil
				},
			}
			svc := order.NewService(store)

			err := svc.CompleteWithCode(context.Background(), "ORD-DDDD4444", tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantUpdate, updateCalled)
		})
	}
}

func TestService_DeleteOrder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		deleted := ""
		store := &fakeStore{
			deleteFunc: func(ctx context.Context, orderID string) error {
				deleted = orderID
				return nil
			},
		}
		svc := order.NewService(store)
		require.NoError(t, svc.DeleteOrder(context.Background(), "ORD-EEEE5555"))
		assert.Equal(t, "ORD-EEEE5555", deleted)
	})

	t.Run("not_found", func(t *testing.T) {
		store := &fakeStore{
			deleteFunc: func(ctx context.Context, orderID string) error {
				return order.ErrOrderNotFound
			},
		}
		svc := order.NewService(store)
		assert.ErrorIs(t, svc.DeleteOrder(context.Background(), "ORD-MISSING1"), order.ErrOrderNotFound)
	})

	t.Run("store_failure_is_wrapped", func(t *testing.T) {
		storeErr := errors.New("connection reset")
		store := &fakeStore{
			deleteFunc: func(ctx context.Context, orderID string) error {
				return storeErr
			},
		}
		svc := order.NewService(store)
		err := svc.DeleteOrder(context.Background(), "ORD-EEEE5555")
		assert.ErrorIs(t, err, storeErr)
		assert.NotErrorIs(t, err, order.ErrOrderNotFound)
	})
}

package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/campuskart-backend/internal/token"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:        {StatusInTransit: true, StatusCancelled: true},
	StatusInTransit:      {StatusCompleted: true, StatusCancelled: true},
	StatusReadyForPickup: {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// cancellableStatuses mirrors the keys of allowedTransitions that
// permit a move to cancelled.
var cancellableStatuses = []Status{StatusPending, StatusInTransit, StatusReadyForPickup}

type Service interface {
	PlaceOrder(ctx context.Context, buyerID int64, cart []CartLine, paymentMode string) ([]Receipt, error)
	GetOrderByID(ctx context.Context, orderID string) (*Order, error)
	ListBuyerOrders(ctx context.Context, buyerID int64) ([]BuyerOrder, error)
	ListSellerSales(ctx context.Context, sellerID int64) ([]SellerSale, error)
	ListOpenOrders(ctx context.Context) ([]OpenOrder, error)
	CancelOrder(ctx context.Context, orderID string, requesterID int64) error
	MarkReceived(ctx context.Context, orderID string, requesterID int64) error
	AdvanceToTransit(ctx context.Context, orderID string) error
	CompleteWithCode(ctx context.Context, orderID, submittedCode string) error
	DeleteOrder(ctx context.Context, orderID string) error
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

// PlaceOrder turns a cart into committed orders: one order row per
// line, each with its own identifier and delivery code. The whole cart
// is one unit of work; a single bad line aborts everything.
func (s *service) PlaceOrder(ctx context.Context, buyerID int64, cart []CartLine, paymentMode string) ([]Receipt, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}
	if paymentMode == "" {
		paymentMode = DefaultPaymentMode
	}

	placements := make([]Placement, 0, len(cart))
	codes := make(map[string]string, len(cart))

	for i, line := range cart {
		if line.ItemID <= 0 || line.Quantity <= 0 {
			return nil, fmt.Errorf("cart line %d is malformed: %w", i+1, ErrEmptyCart)
		}

		orderID, err := token.NewOrderID()
		if err != nil {
			return nil, fmt.Errorf("service: %w", err)
		}
		plaintext, hash, err := token.NewDeliveryCode()
		if err != nil {
			return nil, fmt.Errorf("service: %w", err)
		}

		placements = append(placements, Placement{
			OrderID:     orderID,
			ItemID:      line.ItemID,
			Quantity:    line.Quantity,
			OTPHash:     hash,
			PaymentMode: paymentMode,
		})
		codes[orderID] = plaintext
	}

	placed, err := s.store.PlaceAll(ctx, buyerID, placements)
	if err != nil {
		switch {
		case errors.Is(err, ErrItemUnavailable), errors.Is(err, ErrSelfPurchase), errors.Is(err, ErrInsufficientStock):
			log.Warn().Err(err).Int64("buyer_id", buyerID).Msg("service: order placement rejected")
			return nil, err
		default:
			log.Error().Err(err).Int64("buyer_id", buyerID).Msg("service: failed to place order")
			return nil, fmt.Errorf("service: failed to place order: %w", err)
		}
	}

	receipts := make([]Receipt, 0, len(placed))
	for _, line := range placed {
		receipts = append(receipts, Receipt{
			OrderID:      line.OrderID,
			ItemID:       line.ItemID,
			ItemName:     line.ItemName,
			PriceCharged: line.PriceCharged,
			DeliveryCode: codes[line.OrderID],
		})
	}

	log.Info().Int64("buyer_id", buyerID).Int("lines", len(receipts)).Msg("service: order placed")
	return receipts, nil
}

func (s *service) GetOrderByID(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID int64) ([]BuyerOrder, error) {
	orders, err := s.store.ListByBuyer(ctx, buyerID)
	if err != nil {
		log.Error().Err(err).Int64("buyer_id", buyerID).Msg("service: failed to list buyer orders")
		return nil, fmt.Errorf("service: failed to list buyer orders: %w", err)
	}
	return orders, nil
}

func (s *service) ListSellerSales(ctx context.Context, sellerID int64) ([]SellerSale, error) {
	sales, err := s.store.ListBySeller(ctx, sellerID)
	if err != nil {
		log.Error().Err(err).Int64("seller_id", sellerID).Msg("service: failed to list seller sales")
		return nil, fmt.Errorf("service: failed to list seller sales: %w", err)
	}
	return sales, nil
}

func (s *service) ListOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	orders, err := s.store.ListOpen(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list open orders")
		return nil, fmt.Errorf("service: failed to list open orders: %w", err)
	}
	return orders, nil
}

// CancelOrder is the buyer-initiated compensation path: the status
// change and the stock release commit together or not at all.
func (s *service) CancelOrder(ctx context.Context, orderID string, requesterID int64) error {
	o, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.BuyerID != requesterID {
		log.Warn().Str("order_id", orderID).Int64("requester_id", requesterID).Msg("service: cancel attempt by non-buyer")
		return ErrPermissionDenied
	}
	if !allowedTransitions[o.Status][StatusCancelled] {
		return ErrInvalidTransition
	}

	// The store re-checks the status under lock; the check above only
	// produces a cleaner error for the common case.
	if err := s.store.CancelAndRestock(ctx, orderID, cancellableStatuses); err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidTransition) {
			return err
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to cancel order")
		return fmt.Errorf("service: failed to cancel order: %w", err)
	}

	log.Info().Str("order_id", orderID).Int64("buyer_id", requesterID).Msg("service: order cancelled")
	return nil
}

// MarkReceived lets the buyer confirm delivery themselves. This path
// reaches completed from any non-terminal status without a delivery
// code; the code-gated path is CompleteWithCode.
func (s *service) MarkReceived(ctx context.Context, orderID string, requesterID int64) error {
	o, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.BuyerID != requesterID {
		return ErrPermissionDenied
	}
	if o.Status.Terminal() {
		return ErrInvalidTransition
	}

	openStatuses := []Status{StatusPending, StatusInTransit, StatusReadyForPickup}
	if err := s.store.UpdateStatus(ctx, orderID, openStatuses, StatusCompleted); err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidTransition) {
			return err
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to mark order received")
		return fmt.Errorf("service: failed to mark order received: %w", err)
	}

	log.Info().Str("order_id", orderID).Int64("buyer_id", requesterID).Msg("service: order marked received by buyer")
	return nil
}

// AdvanceToTransit is the administrative pending -> in_transit step.
func (s *service) AdvanceToTransit(ctx context.Context, orderID string) error {
	err := s.store.UpdateStatus(ctx, orderID, []Status{StatusPending}, StatusInTransit)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidTransition) {
			log.Warn().Err(err).Str("order_id", orderID).Msg("service: advance to transit rejected")
			return err
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to advance order to transit")
		return fmt.Errorf("service: failed to advance order to transit: %w", err)
	}

	log.Info().Str("order_id", orderID).Msg("service: order in transit")
	return nil
}

// CompleteWithCode is the administrative in_transit -> completed step,
// gated on the buyer's delivery code. A wrong code leaves the order
// untouched; re-submission after completion is an invalid transition.
func (s *service) CompleteWithCode(ctx context.Context, orderID, submittedCode string) error {
	o, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !allowedTransitions[o.Status][StatusCompleted] {
		return ErrInvalidTransition
	}
	if !token.VerifyDeliveryCode(submittedCode, o.OTPHash) {
		log.Warn().Str("order_id", orderID).Msg("service: delivery code mismatch")
		return ErrInvalidDeliveryCode
	}

	if err := s.store.UpdateStatus(ctx, orderID, []Status{StatusInTransit, StatusReadyForPickup}, StatusCompleted); err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrInvalidTransition) {
			return err
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to complete order")
		return fmt.Errorf("service: failed to complete order: %w", err)
	}

	log.Info().Str("order_id", orderID).Msg("service: order completed")
	return nil
}

// DeleteOrder is the administrative cleanup path. The store restocks
// the item unless the order was already cancelled.
func (s *service) DeleteOrder(ctx context.Context, orderID string) error {
	if err := s.store.DeleteAndRestock(ctx, orderID); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to delete order")
		return fmt.Errorf("service: failed to delete order: %w", err)
	}

	log.Info().Str("order_id", orderID).Msg("service: order deleted")
	return nil
}

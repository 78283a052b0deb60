package item

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

type Service interface {
	CreateListing(ctx context.Context, it *Item) (*Item, error)
	GetItemByID(ctx context.Context, id int64) (*Item, error)
	BrowseCatalog(ctx context.Context, filter Filter) ([]Item, error)
	ListSellerItems(ctx context.Context, sellerID int64) ([]Item, error)
	DeleteListing(ctx context.Context, id, sellerID int64) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateListing(ctx context.Context, it *Item) (*Item, error) {
	it.Name = strings.TrimSpace(it.Name)

	if it.SellerID == 0 {
		return nil, errors.New("service: seller id is required")
	}
	if it.Name == "" {
		return nil, errors.New("service: item name is required")
	}
	if it.Price < 0 {
		return nil, fmt.Errorf("service: item price cannot be negative, got %f", it.Price)
	}
	if it.Quantity <= 0 {
		return nil, fmt.Errorf("service: item quantity must be positive, got %d", it.Quantity)
	}

	if _, err := s.repo.Create(ctx, it); err != nil {
		log.Error().Err(err).Int64("seller_id", it.SellerID).Msg("service: failed to create listing")
		return nil, fmt.Errorf("service: failed to create listing: %w", err)
	}

	log.Info().Int64("item_id", it.ID).Int64("seller_id", it.SellerID).Msg("service: listing created")
	return it, nil
}

func (s *service) GetItemByID(ctx context.Context, id int64) (*Item, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch item: %w", err)
	}
	return it, nil
}

func (s *service) BrowseCatalog(ctx context.Context, filter Filter) ([]Item, error) {
	items, err := s.repo.ListAvailable(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to browse catalog")
		return nil, fmt.Errorf("service: failed to browse catalog: %w", err)
	}
	return items, nil
}

func (s *service) ListSellerItems(ctx context.Context, sellerID int64) ([]Item, error) {
	items, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		log.Error().Err(err).Int64("seller_id", sellerID).Msg("service: failed to list seller items")
		return nil, fmt.Errorf("service: failed to list seller items: %w", err)
	}
	return items, nil
}

func (s *service) DeleteListing(ctx context.Context, id, sellerID int64) error {
	err := s.repo.Delete(ctx, id, sellerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrItemLocked):
			log.Warn().Err(err).Int64("item_id", id).Int64("seller_id", sellerID).Msg("service: listing delete rejected")
			return err
		default:
			log.Error().Err(err).Int64("item_id", id).Msg("service: failed to delete listing")
			return fmt.Errorf("service: failed to delete listing: %w", err)
		}
	}

	log.Info().Int64("item_id", id).Int64("seller_id", sellerID).Msg("service: listing deleted")
	return nil
}

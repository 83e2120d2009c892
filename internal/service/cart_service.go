package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jessetechgeek/shopilent-sub006/internal/cache"
	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
)

// EventSink receives domain events after the triggering write has been
// persisted. The cart store has no outbox, so cart events go through here.
type EventSink interface {
	Publish(ctx context.Context, events []domain.Event)
}

type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	events EventSink
	sfg    singleflight.Group // prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, events EventSink) *CartService {
	return &CartService{
		repo:   repo,
		cache:  cache,
		events: events,
	}
}

// GetCart returns the user's cart, creating an unsaved empty one when none
// exists yet.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight so concurrent cache misses for one user coalesce
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCartByUserID(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return domain.NewCart(userID, nil)
		}
		if errGet != nil {
			return nil, errGet
		}

		// Fill before returning: once the caller has the cart it may
		// mutate it, and a fill racing a later invalidation could pin
		// the stale copy for the full TTL.
		if errSet := s.cache.Set(ctx, userID, cart); errSet != nil {
			log.Printf("cache set error: %v", errSet)
		}

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem adds a product to the user's cart, creating the cart on first use.
func (s *CartService) AddItem(ctx context.Context, userID string, productID uuid.UUID, quantity int, variantID *uuid.UUID) (*domain.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := cart.AddItem(productID, quantity, variantID); err != nil {
		return nil, err
	}

	return cart, s.save(ctx, cart)
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID string, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	cart, err := s.loadExisting(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := cart.UpdateItemQuantity(itemID, quantity); err != nil {
		return nil, err
	}

	return cart, s.save(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, itemID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.loadExisting(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := cart.RemoveItem(itemID); err != nil {
		return nil, err
	}

	return cart, s.save(ctx, cart)
}

func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.loadExisting(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Clear()
	return cart, s.save(ctx, cart)
}

// AssignCartToUser hands an anonymous cart to the authenticated user at
// login.
func (s *CartService) AssignCartToUser(ctx context.Context, cartID uuid.UUID, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, cartID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	if cart.UserID != "" && cart.UserID != userID {
		return nil, ErrCartNotFound
	}

	if err := cart.AssignToUser(userID); err != nil {
		return nil, err
	}

	return cart, s.save(ctx, cart)
}

func (s *CartService) loadExisting(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCartByUserID(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// save persists the cart, publishes its recorded events and invalidates
// the cache. Events are published only after the upsert succeeds.
func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		log.Printf("repo upsert cart error: %v", err)
		return err
	}

	if s.events != nil {
		s.events.Publish(ctx, cart.Events())
	}
	cart.ClearEvents()

	s.invalidateCache(cart.UserID)
	return nil
}

func (s *CartService) invalidateCache(userID string) {
	if userID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

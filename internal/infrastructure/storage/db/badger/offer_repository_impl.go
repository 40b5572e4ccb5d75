package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type offerRepositoryImpl struct {
	store *badgerhold.Store
}

// NewOfferRepositoryImpl returns a new badger OfferRepository implementation.
func NewOfferRepositoryImpl(store *badgerhold.Store) domain.OfferRepository {
	return offerRepositoryImpl{store}
}

func (r offerRepositoryImpl) AddOffer(ctx context.Context, offer domain.Offer) error {
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxInsert(tx, offer.Address, &offer)
	} else {
		err = r.store.Insert(offer.Address, &offer)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOfferID, offer.Address)
		}
		return err
	}
	return nil
}

func (r offerRepositoryImpl) GetOffer(
	ctx context.Context, address string,
) (*domain.Offer, error) {
	var offer domain.Offer
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, address, &offer)
	} else {
		err = r.store.Get(address, &offer)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOfferNotFound, address)
		}
		return nil, err
	}
	return &offer, nil
}

func (r offerRepositoryImpl) GetAllOffers(
	ctx context.Context,
) ([]domain.Offer, error) {
	var offers []domain.Offer
	query := (&badgerhold.Query{}).SortBy("ExpiresAt", "Address")

	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &offers, query)
	} else {
		err = r.store.Find(&offers, query)
	}
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r offerRepositoryImpl) DeleteOffer(ctx context.Context, address string) error {
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxDelete(tx, address, domain.Offer{})
	} else {
		err = r.store.Delete(address, domain.Offer{})
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrOfferNotFound, address)
		}
		return err
	}
	return nil
}

package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tdex-network/escrowd/internal/core/domain"
)

const (
	offerColumns     = `address, bump, id, maker, asset_offered, asset_wanted, amount_offered, amount_wanted, expires_at, created_at, vault`
	insertOfferQuery = `INSERT INTO offers (` + offerColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(address) DO NOTHING`
	selectOfferQuery     = `SELECT ` + offerColumns + ` FROM offers WHERE address = ?`
	selectAllOffersQuery = `SELECT ` + offerColumns + ` FROM offers ORDER BY expires_at, address`
	deleteOfferQuery     = `DELETE FROM offers WHERE address = ?`
)

type offerRepositoryImpl struct {
	querier func(ctx context.Context) querier
}

// NewOfferRepositoryImpl returns a new sqlite OfferRepository implementation.
func NewOfferRepositoryImpl(
	q func(ctx context.Context) querier,
) domain.OfferRepository {
	return &offerRepositoryImpl{q}
}

func (r *offerRepositoryImpl) AddOffer(ctx context.Context, offer domain.Offer) error {
	res, err := r.querier(ctx).ExecContext(
		ctx, insertOfferQuery, offer.Address, int64(offer.Bump), encodeUint(offer.ID),
		offer.Maker, offer.AssetOffered, offer.AssetWanted,
		encodeUint(offer.AmountOffered), encodeUint(offer.AmountWanted),
		offer.ExpiresAt, offer.CreatedAt, offer.Vault,
	)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateOfferID, offer.Address)
	}
	return nil
}

func (r *offerRepositoryImpl) GetOffer(
	ctx context.Context, address string,
) (*domain.Offer, error) {
	row := r.querier(ctx).QueryRowContext(ctx, selectOfferQuery, address)
	offer, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOfferNotFound, address)
		}
		return nil, mapError(err)
	}
	return offer, nil
}

func (r *offerRepositoryImpl) GetAllOffers(
	ctx context.Context,
) ([]domain.Offer, error) {
	rows, err := r.querier(ctx).QueryContext(ctx, selectAllOffersQuery)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	offers := make([]domain.Offer, 0)
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}

func (r *offerRepositoryImpl) DeleteOffer(ctx context.Context, address string) error {
	res, err := r.querier(ctx).ExecContext(ctx, deleteOfferQuery, address)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOfferNotFound, address)
	}
	return nil
}

func scanOffer(row scanner) (*domain.Offer, error) {
	var offer domain.Offer
	var bump int64
	var id, amountOffered, amountWanted string
	if err := row.Scan(
		&offer.Address, &bump, &id, &offer.Maker, &offer.AssetOffered,
		&offer.AssetWanted, &amountOffered, &amountWanted, &offer.ExpiresAt,
		&offer.CreatedAt, &offer.Vault,
	); err != nil {
		return nil, err
	}

	offer.Bump = uint8(bump)
	var err error
	if offer.ID, err = decodeUint(id); err != nil {
		return nil, err
	}
	if offer.AmountOffered, err = decodeUint(amountOffered); err != nil {
		return nil, err
	}
	if offer.AmountWanted, err = decodeUint(amountWanted); err != nil {
		return nil, err
	}
	return &offer, nil
}

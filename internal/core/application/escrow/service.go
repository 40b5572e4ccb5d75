package escrow

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/escrowd/internal/core/application/pubsub"
	"github.com/tdex-network/escrowd/internal/core/domain"
	"github.com/tdex-network/escrowd/internal/core/ports"
	"github.com/tdex-network/escrowd/pkg/stats"
)

const (
	transitionCreate = "create"
	transitionAccept = "accept"
	transitionCancel = "cancel"

	DefaultMinOfferDuration = time.Hour
)

// Options are the tunables of the offer lifecycle.
type Options struct {
	// MinOfferDuration is the minimum distance between creation and expiry of
	// an offer.
	MinOfferDuration time.Duration
	// VaultRent is the amount of NativeAsset base units locked by the maker
	// for the whole life of an offer vault. Zero disables it.
	VaultRent   uint64
	NativeAsset string
}

// Service drives offers through their lifecycle. Every transition is a single
// db transaction, so that either all of its effects are committed or none.
type Service struct {
	repoManager ports.RepoManager
	pubsub      *pubsub.Service
	clock       ports.Clock

	minOfferDuration time.Duration
	vaultRent        uint64
	nativeAsset      string
}

func NewService(
	repoManager ports.RepoManager, pubsubSvc *pubsub.Service,
	clock ports.Clock, opts Options,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if pubsubSvc == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if clock == nil {
		clock = ports.NewSystemClock()
	}
	if opts.MinOfferDuration <= 0 {
		opts.MinOfferDuration = DefaultMinOfferDuration
	}
	if opts.VaultRent > 0 && !domain.IsValidAddress(opts.NativeAsset) {
		return nil, fmt.Errorf("vault rent requires a valid native asset")
	}

	return &Service{
		repoManager, pubsubSvc, clock,
		opts.MinOfferDuration, opts.VaultRent, opts.NativeAsset,
	}, nil
}

// CreateOffer escrows the offered amount of maker into a new vault and opens
// the offer.
func (s *Service) CreateOffer(
	ctx context.Context, maker string, terms domain.OfferTerms,
) (offer *domain.Offer, err error) {
	defer s.record(transitionCreate, time.Now(), &err)

	if !domain.IsValidIdentity(maker) {
		return nil, domain.ErrInvalidIdentity
	}
	now := s.clock.Now()
	if err := terms.Validate(now, s.minOfferDuration); err != nil {
		return nil, err
	}

	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			offered, wanted, err := s.getAssets(
				ctx, terms.AssetOffered, terms.AssetWanted,
			)
			if err != nil {
				return nil, err
			}

			offer, vault, err := domain.NewOffer(maker, terms, *offered, *wanted, now)
			if err != nil {
				return nil, err
			}
			vault.RentDeposit = s.vaultRent

			if err := s.repoManager.OfferRepository().AddOffer(
				ctx, *offer,
			); err != nil {
				return nil, err
			}
			if err := s.repoManager.VaultRepository().AddVault(
				ctx, *vault,
			); err != nil {
				return nil, err
			}
			if err := s.debit(
				ctx, maker, offer.AssetOffered, offer.AmountOffered,
			); err != nil {
				return nil, err
			}
			if vault.RentDeposit > 0 {
				if err := s.debit(
					ctx, maker, s.nativeAsset, vault.RentDeposit,
				); err != nil {
					return nil, err
				}
			}

			return transitionResult{offer: offer, offered: offered, wanted: wanted}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	result := res.(transitionResult)
	log.WithFields(log.Fields{
		"offer": result.offer.Address,
		"maker": maker,
		"id":    result.offer.ID,
	}).Info("offer created")

	s.pubsub.PublishOfferCreatedEvent(*result.offer, *result.offered, *result.wanted)
	return result.offer, nil
}

// AcceptOffer settles the offer: the wanted amount moves from taker to maker,
// the vault content moves to taker, and both vault and offer are closed.
func (s *Service) AcceptOffer(
	ctx context.Context, taker, offerAddress string,
) (*domain.Receipt, error) {
	return s.acceptOffer(ctx, taker, offerAddress, nil)
}

// AcceptOfferWithTerms is like AcceptOffer but settles the offer only if it
// swaps exactly the given amounts.
func (s *Service) AcceptOfferWithTerms(
	ctx context.Context, taker, offerAddress string, terms domain.AcceptTerms,
) (*domain.Receipt, error) {
	return s.acceptOffer(ctx, taker, offerAddress, &terms)
}

func (s *Service) acceptOffer(
	ctx context.Context, taker, offerAddress string, terms *domain.AcceptTerms,
) (receipt *domain.Receipt, err error) {
	defer s.record(transitionAccept, time.Now(), &err)

	if !domain.IsValidIdentity(taker) {
		return nil, domain.ErrInvalidIdentity
	}
	if !domain.IsValidAddress(offerAddress) {
		return nil, domain.ErrInvalidAddress
	}
	now := s.clock.Now()

	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			offer, vault, err := s.getOfferAndVault(ctx, offerAddress)
			if err != nil {
				return nil, err
			}
			if err := offer.CanBeAcceptedBy(taker, now); err != nil {
				return nil, err
			}
			offered, wanted, err := s.getAssets(
				ctx, offer.AssetOffered, offer.AssetWanted,
			)
			if err != nil {
				return nil, err
			}
			if terms != nil {
				if err := offer.MatchesTerms(*terms, *offered, *wanted); err != nil {
					return nil, err
				}
			}

			if err := s.debit(
				ctx, taker, offer.AssetWanted, offer.AmountWanted,
			); err != nil {
				return nil, err
			}
			if err := s.credit(
				ctx, offer.Maker, offer.AssetWanted, offer.AmountWanted,
			); err != nil {
				return nil, err
			}
			if err := s.credit(
				ctx, taker, offer.AssetOffered, vault.Withdraw(),
			); err != nil {
				return nil, err
			}
			if err := s.close(ctx, offer, vault); err != nil {
				return nil, err
			}

			receipt := newReceipt(offer, vault, taker, now)
			return transitionResult{
				receipt: receipt, offered: offered, wanted: wanted,
			}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	result := res.(transitionResult)
	log.WithFields(log.Fields{
		"offer": offerAddress,
		"maker": result.receipt.Maker,
		"taker": taker,
	}).Info("offer accepted")

	s.pubsub.PublishOfferAcceptedEvent(
		*result.receipt, *result.offered, *result.wanted,
	)
	return result.receipt, nil
}

// CancelOffer returns the vault content to the maker and closes both vault
// and offer. Anyone can cancel an expired offer, only the maker can do it
// before expiry. Funds always go back to the maker.
func (s *Service) CancelOffer(
	ctx context.Context, caller, offerAddress string,
) (receipt *domain.Receipt, err error) {
	defer s.record(transitionCancel, time.Now(), &err)

	if !domain.IsValidIdentity(caller) {
		return nil, domain.ErrInvalidIdentity
	}
	if !domain.IsValidAddress(offerAddress) {
		return nil, domain.ErrInvalidAddress
	}
	now := s.clock.Now()

	res, err := s.repoManager.RunTransaction(
		ctx, false, func(ctx context.Context) (interface{}, error) {
			offer, vault, err := s.getOfferAndVault(ctx, offerAddress)
			if err != nil {
				return nil, err
			}
			if err := offer.CanBeCancelledBy(caller, now); err != nil {
				return nil, err
			}

			if err := s.credit(
				ctx, offer.Maker, offer.AssetOffered, vault.Withdraw(),
			); err != nil {
				return nil, err
			}
			if err := s.close(ctx, offer, vault); err != nil {
				return nil, err
			}

			offered, wanted, err := s.getAssets(
				ctx, offer.AssetOffered, offer.AssetWanted,
			)
			if err != nil {
				return nil, err
			}
			receipt := newReceipt(offer, vault, caller, now)
			return transitionResult{
				receipt: receipt, offered: offered, wanted: wanted,
			}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	result := res.(transitionResult)
	log.WithFields(log.Fields{
		"offer":  offerAddress,
		"maker":  result.receipt.Maker,
		"caller": caller,
	}).Info("offer cancelled")

	s.pubsub.PublishOfferCancelledEvent(
		*result.receipt, *result.offered, *result.wanted,
	)
	return result.receipt, nil
}

func (s *Service) getAssets(
	ctx context.Context, assetOffered, assetWanted string,
) (*domain.Asset, *domain.Asset, error) {
	repo := s.repoManager.AssetRepository()
	offered, err := repo.GetAsset(ctx, assetOffered)
	if err != nil {
		return nil, nil, err
	}
	wanted, err := repo.GetAsset(ctx, assetWanted)
	if err != nil {
		return nil, nil, err
	}
	return offered, wanted, nil
}

func (s *Service) getOfferAndVault(
	ctx context.Context, offerAddress string,
) (*domain.Offer, *domain.Vault, error) {
	offer, err := s.repoManager.OfferRepository().GetOffer(ctx, offerAddress)
	if err != nil {
		return nil, nil, err
	}
	vault, err := s.repoManager.VaultRepository().GetVault(ctx, offer.Vault)
	if err != nil {
		return nil, nil, err
	}
	if !offer.IsLinkedTo(vault) {
		return nil, nil, fmt.Errorf(
			"%w: vault %s is not linked to offer", domain.ErrOfferNotFound, vault.Address,
		)
	}
	return offer, vault, nil
}

// close removes vault and offer records and gives the vault rent back to the
// maker.
func (s *Service) close(
	ctx context.Context, offer *domain.Offer, vault *domain.Vault,
) error {
	if err := s.repoManager.VaultRepository().DeleteVault(
		ctx, vault.Address,
	); err != nil {
		return err
	}
	if err := s.repoManager.OfferRepository().DeleteOffer(
		ctx, offer.Address,
	); err != nil {
		return err
	}
	if vault.RentDeposit > 0 {
		return s.credit(ctx, offer.Maker, s.nativeAsset, vault.RentDeposit)
	}
	return nil
}

func (s *Service) debit(
	ctx context.Context, owner, asset string, amount uint64,
) error {
	return s.repoManager.HoldingRepository().UpdateHolding(
		ctx, owner, asset, func(h *domain.Holding) (*domain.Holding, error) {
			if err := h.Debit(amount); err != nil {
				return nil, err
			}
			return h, nil
		},
	)
}

func (s *Service) credit(
	ctx context.Context, owner, asset string, amount uint64,
) error {
	return s.repoManager.HoldingRepository().UpdateHolding(
		ctx, owner, asset, func(h *domain.Holding) (*domain.Holding, error) {
			if err := h.Credit(amount); err != nil {
				return nil, err
			}
			return h, nil
		},
	)
}

func (s *Service) record(transition string, started time.Time, err *error) {
	outcome := stats.OutcomeOK
	if *err != nil {
		outcome = domain.NameOf(*err)
		log.WithError(*err).WithField("transition", transition).Debug(
			"transition aborted",
		)
	}
	stats.RecordTransition(transition, outcome, started)
}

type transitionResult struct {
	offer   *domain.Offer
	receipt *domain.Receipt
	offered *domain.Asset
	wanted  *domain.Asset
}

func newReceipt(
	offer *domain.Offer, vault *domain.Vault, counterparty string, now time.Time,
) *domain.Receipt {
	return &domain.Receipt{
		Offer:         offer.Address,
		Maker:         offer.Maker,
		Counterparty:  counterparty,
		AssetOffered:  offer.AssetOffered,
		AssetWanted:   offer.AssetWanted,
		AmountOffered: offer.AmountOffered,
		AmountWanted:  offer.AmountWanted,
		RentReturned:  vault.RentDeposit,
		Timestamp:     now.Unix(),
	}
}

/**
 * @description
 * Pure ledger netting over inter-site transfer records. Given the directed
 * pairwise transfers (origin site, destination site, amount) it computes,
 * per site, the gross amount owed to it, the gross amount it owes, the net
 * balance, and the decomposed counterparty relationships.
 *
 * Every included record contributes symmetrically: +amount credit to exactly
 * one origin and +amount debit to exactly one destination, so the nets across
 * all sites always sum to zero. A malformed record fails the whole computation
 * rather than being skipped, because silently dropping a record would break
 * that conservation property undetectably.
 */

package app

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
)

var (
	ErrMissingSite       = errors.New("transfer record is missing a site id")
	ErrSameSiteTransfer  = errors.New("origin and destination site must differ")
	ErrNonPositiveAmount = errors.New("transfer amount must be positive")
	ErrUnknownStatus     = errors.New("transfer record has an unknown status")
)

// ComputeBalances nets all non-void transfer records into per-site balance
// sheets. Void records contribute nothing; every other record is validated
// up front and any malformed one aborts the call before a partial result can
// escape. The universe of reported sites is exactly the set of origin and
// destination ids seen across the included records.
//
// Ordering is deterministic: balances sorted by net descending (site id
// ascending on ties), counterparty lists by accumulated amount descending
// (site id ascending on ties).
func ComputeBalances(records []domain.TransferRecord) ([]domain.SiteBalance, error) {
	included := make([]domain.TransferRecord, 0, len(records))
	for _, rec := range records {
		switch rec.Status {
		case domain.TransferStatusVoid:
			continue
		case domain.TransferStatusPending, domain.TransferStatusSettled:
			included = append(included, rec)
		default:
			return nil, fmt.Errorf("record %s: %w (%q)", rec.ID, ErrUnknownStatus, rec.Status)
		}
	}

	for _, rec := range included {
		if rec.OriginSiteID == uuid.Nil || rec.DestinationSiteID == uuid.Nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, ErrMissingSite)
		}
		if rec.OriginSiteID == rec.DestinationSiteID {
			return nil, fmt.Errorf("record %s: %w", rec.ID, ErrSameSiteTransfer)
		}
		if rec.Amount <= 0 {
			return nil, fmt.Errorf("record %s: %w (%d)", rec.ID, ErrNonPositiveAmount, rec.Amount)
		}
	}

	balances := make(map[uuid.UUID]*domain.SiteBalance)
	ensure := func(site uuid.UUID) *domain.SiteBalance {
		if b, ok := balances[site]; ok {
			return b
		}
		b := &domain.SiteBalance{SiteID: site}
		balances[site] = b
		return b
	}

	for _, rec := range included {
		origin := ensure(rec.OriginSiteID)
		destination := ensure(rec.DestinationSiteID)

		origin.GrossCredit += rec.Amount
		destination.GrossDebit += rec.Amount

		origin.OwedByCounterparties = upsertShare(origin.OwedByCounterparties, rec.DestinationSiteID, rec.Amount)
		destination.OwedToCounterparties = upsertShare(destination.OwedToCounterparties, rec.OriginSiteID, rec.Amount)
	}

	out := make([]domain.SiteBalance, 0, len(balances))
	for _, b := range balances {
		b.Net = b.GrossCredit - b.GrossDebit
		b.OwedByCounterparties = pruneAndSortShares(b.OwedByCounterparties)
		b.OwedToCounterparties = pruneAndSortShares(b.OwedToCounterparties)
		out = append(out, *b)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Net != out[j].Net {
			return out[i].Net > out[j].Net
		}
		return out[i].SiteID.String() < out[j].SiteID.String()
	})

	return out, nil
}

// upsertShare accumulates amount into the entry for counterparty, creating it
// on first sight.
func upsertShare(shares []domain.CounterpartyShare, counterparty uuid.UUID, amount int64) []domain.CounterpartyShare {
	for i := range shares {
		if shares[i].SiteID == counterparty {
			shares[i].Amount += amount
			shares[i].TransferCount++
			return shares
		}
	}
	return append(shares, domain.CounterpartyShare{
		SiteID:        counterparty,
		Amount:        amount,
		TransferCount: 1,
	})
}

// pruneAndSortShares drops entries whose accumulated amount is exactly zero
// (only reachable if negative amounts were ever admitted upstream) and orders
// the rest by amount descending, site id ascending on ties.
func pruneAndSortShares(shares []domain.CounterpartyShare) []domain.CounterpartyShare {
	kept := shares[:0]
	for _, s := range shares {
		if s.Amount != 0 {
			kept = append(kept, s)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Amount != kept[j].Amount {
			return kept[i].Amount > kept[j].Amount
		}
		return kept[i].SiteID.String() < kept[j].SiteID.String()
	})
	if len(kept) == 0 {
		return nil
	}
	return kept
}

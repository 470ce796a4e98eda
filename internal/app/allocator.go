/**
 * @description
 * Pure daily-rate allocation logic. A worker earns a fixed daily rate no matter
 * how many sites they cover in a day; the rate is split evenly across the
 * distinct sites visited. These functions compute that split, detect stored
 * shares that have drifted from it (stale rates, manual edits), and produce
 * the deterministic correction set for a drifted group.
 *
 * None of this performs I/O. Callers load the assignment group, invoke these
 * functions, and persist the resulting corrections themselves.
 */

package app

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/ncannata93/stockhdlc-sub001/internal/domain"
)

// DefaultRateTolerance absorbs round-half-up remainders: a group whose shares
// each sit within one whole currency unit of the even split is considered
// correctly allocated.
const DefaultRateTolerance = int64(1)

var (
	ErrInvalidSiteCount = errors.New("site count must be at least 1")
	ErrNegativeRate     = errors.New("daily rate must not be negative")
	ErrEmptyGroup       = errors.New("assignment group is empty")
)

// Allocate computes the per-site share of a daily rate split evenly across
// siteCount sites, rounded half-up to the whole currency unit. The result is
// deterministic: repeated calls with the same inputs always agree.
func Allocate(dailyRate int64, siteCount int) (int64, error) {
	if siteCount < 1 {
		return 0, ErrInvalidSiteCount
	}
	if dailyRate < 0 {
		return 0, ErrNegativeRate
	}

	n := int64(siteCount)
	share := dailyRate / n
	if 2*(dailyRate%n) >= n {
		share++
	}
	return share, nil
}

// DetectDrift compares one (worker, date) assignment group against the even
// split of dailyRate. The group is drifted when any single share sits more
// than tolerance away from the expected share, or when the group total
// deviates from the policy total (expected share times group size) by more
// than tolerance. Comparing against the policy total rather than the raw
// daily rate keeps Repair a fixed point of this diagnostic: rounding the
// share half-up can move the group total a few units off the daily rate, and
// a group Repair just wrote must never come back flagged. A tolerance below
// zero falls back to DefaultRateTolerance.
func DetectDrift(assignments []domain.WorkAssignment, dailyRate int64, tolerance int64) (*domain.DriftReport, error) {
	if len(assignments) == 0 {
		return nil, ErrEmptyGroup
	}
	if tolerance < 0 {
		tolerance = DefaultRateTolerance
	}

	expected, err := Allocate(dailyRate, len(assignments))
	if err != nil {
		return nil, err
	}

	report := &domain.DriftReport{
		WorkerID:      assignments[0].WorkerID,
		Date:          assignments[0].Date,
		DailyRate:     dailyRate,
		ExpectedShare: expected,
		Deltas:        make([]domain.AssignmentDelta, 0, len(assignments)),
	}

	var total int64
	for _, a := range assignments {
		total += a.AllocatedRate
		delta := a.AllocatedRate - expected
		report.Deltas = append(report.Deltas, domain.AssignmentDelta{
			AssignmentID: a.ID,
			SiteID:       a.SiteID,
			CurrentRate:  a.AllocatedRate,
			ExpectedRate: expected,
			Delta:        delta,
		})
		if absInt64(delta) > tolerance {
			report.Drifted = true
		}
	}
	report.GroupTotal = total
	if absInt64(total-expected*int64(len(assignments))) > tolerance {
		report.Drifted = true
	}

	return report, nil
}

// Repair recomputes the even split for the whole group and returns the
// complete correction set, one entry per assignment, for the caller to
// persist. Applying it to an already-correct group recomputes the same values,
// so repeated repairs converge and never oscillate.
func Repair(assignments []domain.WorkAssignment, dailyRate int64) ([]domain.RateCorrection, error) {
	if len(assignments) == 0 {
		return nil, ErrEmptyGroup
	}

	share, err := Allocate(dailyRate, len(assignments))
	if err != nil {
		return nil, err
	}

	corrections := make([]domain.RateCorrection, 0, len(assignments))
	for _, a := range assignments {
		corrections = append(corrections, domain.RateCorrection{
			AssignmentID: a.ID,
			NewRate:      share,
		})
	}
	return corrections, nil
}

// GroupAssignmentsByWorkerDay buckets assignments by (worker, calendar day)
// for range scans. Group order is deterministic: worker id ascending, then
// date ascending.
func GroupAssignmentsByWorkerDay(assignments []domain.WorkAssignment) [][]domain.WorkAssignment {
	type key struct {
		worker uuid.UUID
		day    string
	}

	buckets := make(map[key][]domain.WorkAssignment)
	order := make([]key, 0)
	for _, a := range assignments {
		k := key{worker: a.WorkerID, day: a.Date.Format(domain.DateLayout)}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], a)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].worker != order[j].worker {
			return order[i].worker.String() < order[j].worker.String()
		}
		return order[i].day < order[j].day
	})

	groups := make([][]domain.WorkAssignment, 0, len(order))
	for _, k := range order {
		groups = append(groups, buckets[k])
	}
	return groups
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

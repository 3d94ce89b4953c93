package service

import (
	"context"
	"sort"
	"time"

	"anoa.com/ctfarena/internal/cache"
	"anoa.com/ctfarena/internal/dto"
	"anoa.com/ctfarena/internal/repository"
	"github.com/google/uuid"
)

// topGraphCount is how many leaders get their score history precomputed
// on every flush.
const topGraphCount = 10

// LeaderboardService owns the cached rank list and score graphs. After
// every flush it either folds the accepted solve deltas into the cached
// list or, when a hint deduction happened since the list was computed,
// requeries from scratch.
type LeaderboardService interface {
	GetRanks(ctx context.Context, limit int) (*dto.RankList, error)
	GetUserRank(ctx context.Context, userID uuid.UUID) (*dto.UserRank, error)
	GetUserGraph(ctx context.Context, userID uuid.UUID) (*dto.UserGraph, error)
	GetTopUsersGraph(ctx context.Context) ([]dto.UserGraph, error)

	RecomputeAfterFlush(ctx context.Context, deltas []dto.SolveDelta) error
	Invalidate(ctx context.Context) error
}

type leaderboardService struct {
	ledger   repository.LedgerRepository
	cache    cache.Cache
	rankTTL  time.Duration
	graphTTL time.Duration
}

func NewLeaderboardService(ledger repository.LedgerRepository, c cache.Cache, rankTTL, graphTTL time.Duration) LeaderboardService {
	return &leaderboardService{
		ledger:   ledger,
		cache:    c,
		rankTTL:  rankTTL,
		graphTTL: graphTTL,
	}
}

func (s *leaderboardService) GetRanks(ctx context.Context, limit int) (*dto.RankList, error) {
	list, err := s.fullRanks(ctx)
	if err != nil {
		return nil, err
	}

	if limit > 0 && limit < len(list.Ranks) {
		list = &dto.RankList{
			Ranks:             list.Ranks[:limit],
			TotalParticipants: list.TotalParticipants,
			HintVersion:       list.HintVersion,
		}
	}
	return list, nil
}

// GetUserRank returns nil when the user holds no leaderboard position.
func (s *leaderboardService) GetUserRank(ctx context.Context, userID uuid.UUID) (*dto.UserRank, error) {
	list, err := s.fullRanks(ctx)
	if err != nil {
		return nil, err
	}

	for i := range list.Ranks {
		if list.Ranks[i].UserID == userID {
			rank := list.Ranks[i]
			return &rank, nil
		}
	}
	return nil, nil
}

func (s *leaderboardService) GetUserGraph(ctx context.Context, userID uuid.UUID) (*dto.UserGraph, error) {
	var graph dto.UserGraph
	found, err := s.cache.Get(ctx, cache.KeyUserGraph(userID), &graph)
	if err == nil && found {
		return &graph, nil
	}

	fresh, err := s.ledger.UserGraph(ctx, userID)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, cache.KeyUserGraph(userID), fresh, s.graphTTL)
	return fresh, nil
}

func (s *leaderboardService) GetTopUsersGraph(ctx context.Context) ([]dto.UserGraph, error) {
	var graphs []dto.UserGraph
	found, err := s.cache.Get(ctx, cache.KeyTopUsersGraph, &graphs)
	if err == nil && found {
		return graphs, nil
	}

	list, err := s.fullRanks(ctx)
	if err != nil {
		return nil, err
	}
	return s.storeTopGraphs(ctx, list)
}

// RecomputeAfterFlush refreshes the cached leaderboard from one flush
// batch. The cheap path merges the solve deltas into the cached list;
// it is only valid while no hint deduction has been buffered since the
// list was computed, so the hint usage version is checked both before
// merging and again before committing the merged result.
func (s *leaderboardService) RecomputeAfterFlush(ctx context.Context, deltas []dto.SolveDelta) error {
	version, verErr := s.cache.Counter(ctx, cache.KeyHintUsageVersion)

	var cached dto.RankList
	found, err := s.cache.Get(ctx, cache.KeyUserRanks, &cached)

	var list *dto.RankList
	switch {
	case verErr != nil || err != nil || !found || cached.HintVersion != version:
		list, err = s.requery(ctx)
		if err != nil {
			return err
		}
	default:
		mergeDeltas(&cached, deltas)

		again, err := s.cache.Counter(ctx, cache.KeyHintUsageVersion)
		if err != nil || again != version {
			// A hint landed mid-merge; the merged list is stale.
			list, err = s.requery(ctx)
			if err != nil {
				return err
			}
		} else {
			if err := s.cache.Set(ctx, cache.KeyUserRanks, &cached, s.rankTTL); err != nil {
				return err
			}
			list = &cached
		}
	}

	_, err = s.storeTopGraphs(ctx, list)
	return err
}

func (s *leaderboardService) Invalidate(ctx context.Context) error {
	return s.cache.Remove(ctx, cache.KeyUserRanks, cache.KeyTopUsersGraph)
}

func (s *leaderboardService) fullRanks(ctx context.Context) (*dto.RankList, error) {
	var list dto.RankList
	found, err := s.cache.Get(ctx, cache.KeyUserRanks, &list)
	if err == nil && found {
		return &list, nil
	}
	return s.requery(ctx)
}

// requery rebuilds the rank list from the users table and stamps it with
// the hint usage version read before the query. A bump during the query
// makes the stamp stale, which forces the next recompute to requery
// again rather than merge.
func (s *leaderboardService) requery(ctx context.Context) (*dto.RankList, error) {
	version, err := s.cache.Counter(ctx, cache.KeyHintUsageVersion)
	if err != nil {
		version = 0
	}

	list, err := s.ledger.UserRanks(ctx, 0)
	if err != nil {
		return nil, err
	}
	list.HintVersion = version

	_ = s.cache.Set(ctx, cache.KeyUserRanks, list, s.rankTTL)
	return list, nil
}

func (s *leaderboardService) storeTopGraphs(ctx context.Context, list *dto.RankList) ([]dto.UserGraph, error) {
	count := topGraphCount
	if count > len(list.Ranks) {
		count = len(list.Ranks)
	}
	ids := make([]uuid.UUID, 0, count)
	for _, r := range list.Ranks[:count] {
		ids = append(ids, r.UserID)
	}

	graphs, err := s.ledger.UsersGraph(ctx, ids)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, cache.KeyTopUsersGraph, graphs, s.graphTTL)
	return graphs, nil
}

func mergeDeltas(list *dto.RankList, deltas []dto.SolveDelta) {
	index := make(map[uuid.UUID]int, len(list.Ranks))
	for i, r := range list.Ranks {
		index[r.UserID] = i
	}

	for _, d := range deltas {
		// Zero-point solves are not qualifying: they move neither the
		// tie-break timestamp nor list membership, same as the requery.
		if d.Points <= 0 {
			continue
		}
		solvedAt := d.SolvedAt
		if i, ok := index[d.UserID]; ok {
			list.Ranks[i].Points += d.Points
			if list.Ranks[i].LatestSolve == nil || solvedAt.After(*list.Ranks[i].LatestSolve) {
				list.Ranks[i].LatestSolve = &solvedAt
			}
		} else {
			list.Ranks = append(list.Ranks, dto.UserRank{
				UserID:      d.UserID,
				Username:    d.Username,
				Points:      d.Points,
				LatestSolve: &solvedAt,
			})
			index[d.UserID] = len(list.Ranks) - 1
			list.TotalParticipants++
		}
	}

	// Ties break towards the earlier solver.
	sort.SliceStable(list.Ranks, func(i, j int) bool {
		a, b := list.Ranks[i], list.Ranks[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		switch {
		case a.LatestSolve == nil:
			return false
		case b.LatestSolve == nil:
			return true
		default:
			return a.LatestSolve.Before(*b.LatestSolve)
		}
	})
	for i := range list.Ranks {
		list.Ranks[i].Position = i + 1
	}
}

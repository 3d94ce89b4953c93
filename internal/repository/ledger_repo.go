package repository

import (
	"context"
	"sort"
	"time"

	"anoa.com/ctfarena/internal/dto"
	"anoa.com/ctfarena/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FlushResult reports what one flush batch actually committed. Buffer
// rows that referenced deleted users/challenges/hints or lost the
// unique-constraint race are not part of it.
type FlushResult struct {
	AcceptedSolves     []dto.SolveDelta
	AcceptedHintUsages int
	SavedAttempts      int
	DroppedStale       int
}

type LedgerRepository interface {
	// ApplyBatch commits one buffer snapshot as a single transaction:
	// conditional inserts for still-valid references, conflict-ignoring
	// solve/hint-usage inserts, solve-count increments, ledger appends
	// and per-user aggregate deltas. Replaying the same snapshot is inert.
	ApplyBatch(ctx context.Context, snapshot *BufferSnapshot) (*FlushResult, error)

	// RebuildAggregates recomputes every user's points from the ledger
	// sum and latest_solve from the newest positive-delta entry.
	RebuildAggregates(ctx context.Context) error

	UserRanks(ctx context.Context, limit int) (*dto.RankList, error)
	UsersGraph(ctx context.Context, userIDs []uuid.UUID) ([]dto.UserGraph, error)
	UserGraph(ctx context.Context, userID uuid.UUID) (*dto.UserGraph, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ApplyBatch(ctx context.Context, snapshot *BufferSnapshot) (*FlushResult, error) {
	result := &FlushResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := existingUsers(tx, snapshot)
		if err != nil {
			return err
		}
		challenges, err := existingChallenges(tx, snapshot)
		if err != nil {
			return err
		}
		hints, err := existingHints(tx, snapshot)
		if err != nil {
			return err
		}

		// Attempt history. Stale references are dropped, never an error.
		var attempts []model.Attempt
		for _, b := range snapshot.Attempts {
			if _, ok := users[b.UserID]; !ok {
				result.DroppedStale++
				continue
			}
			if !challenges[b.ChallengeID] {
				result.DroppedStale++
				continue
			}
			attempts = append(attempts, model.Attempt{
				UserID:      b.UserID,
				ChallengeID: b.ChallengeID,
				SubmittedAt: b.SubmittedAt,
			})
		}
		if len(attempts) > 0 {
			if err := tx.CreateInBatches(attempts, 500).Error; err != nil {
				return err
			}
			result.SavedAttempts = len(attempts)
		}

		type userDelta struct {
			points      int
			latestSolve *time.Time
		}
		userDeltas := make(map[uuid.UUID]*userDelta)
		solveCounts := make(map[uuid.UUID]int)
		var activities []model.PointsActivity

		// Solves: earliest buffered event per (user, challenge) first, so
		// the ledger timestamp matches the row the unique index keeps.
		solves := append([]model.SolveBuffer(nil), snapshot.Solves...)
		sort.Slice(solves, func(i, j int) bool { return solves[i].SolvedAt.Before(solves[j].SolvedAt) })

		type solveKey struct{ user, challenge uuid.UUID }
		seenSolves := make(map[solveKey]bool)

		for _, b := range solves {
			if _, ok := users[b.UserID]; !ok {
				result.DroppedStale++
				continue
			}
			if !challenges[b.ChallengeID] {
				result.DroppedStale++
				continue
			}
			key := solveKey{b.UserID, b.ChallengeID}
			if seenSolves[key] {
				continue
			}
			seenSolves[key] = true

			solve := model.Solve{
				UserID:      b.UserID,
				ChallengeID: b.ChallengeID,
				SolvedAt:    b.SolvedAt,
			}
			insert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "challenge_id"}},
				DoNothing: true,
			}).Create(&solve)
			if insert.Error != nil {
				return insert.Error
			}
			if insert.RowsAffected == 0 {
				// Already solved in an earlier batch; replay is inert.
				continue
			}

			solveCounts[b.ChallengeID]++
			activities = append(activities, model.PointsActivity{
				UserID:        b.UserID,
				ChallengeID:   b.ChallengeID,
				IsSolve:       true,
				ChallengeName: b.ChallengeName,
				PointsChange:  b.Points,
				OccurredAt:    b.SolvedAt,
			})

			delta, ok := userDeltas[b.UserID]
			if !ok {
				delta = &userDelta{}
				userDeltas[b.UserID] = delta
			}
			delta.points += b.Points
			if b.Points > 0 {
				solvedAt := b.SolvedAt
				if delta.latestSolve == nil || solvedAt.After(*delta.latestSolve) {
					delta.latestSolve = &solvedAt
				}
			}

			result.AcceptedSolves = append(result.AcceptedSolves, dto.SolveDelta{
				UserID:   b.UserID,
				Username: users[b.UserID],
				Points:   b.Points,
				SolvedAt: b.SolvedAt,
			})
		}

		type hintKey struct{ user, hint uuid.UUID }
		seenHints := make(map[hintKey]bool)

		for _, b := range snapshot.HintUsages {
			if _, ok := users[b.UserID]; !ok {
				result.DroppedStale++
				continue
			}
			if !hints[b.HintID] || !challenges[b.ChallengeID] {
				result.DroppedStale++
				continue
			}
			key := hintKey{b.UserID, b.HintID}
			if seenHints[key] {
				continue
			}
			seenHints[key] = true

			usage := model.HintUsage{
				UserID: b.UserID,
				HintID: b.HintID,
				UsedAt: b.UsedAt,
			}
			insert := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "hint_id"}},
				DoNothing: true,
			}).Create(&usage)
			if insert.Error != nil {
				return insert.Error
			}
			if insert.RowsAffected == 0 {
				continue
			}

			hintID := b.HintID
			activities = append(activities, model.PointsActivity{
				UserID:        b.UserID,
				ChallengeID:   b.ChallengeID,
				HintID:        &hintID,
				IsSolve:       false,
				ChallengeName: b.ChallengeName,
				PointsChange:  -b.Deduction,
				OccurredAt:    b.UsedAt,
			})

			delta, ok := userDeltas[b.UserID]
			if !ok {
				delta = &userDelta{}
				userDeltas[b.UserID] = delta
			}
			delta.points -= b.Deduction

			result.AcceptedHintUsages++
		}

		if len(activities) > 0 {
			if err := tx.CreateInBatches(activities, 500).Error; err != nil {
				return err
			}
		}

		for challengeID, count := range solveCounts {
			err := tx.Model(&model.Challenge{}).
				Where("id = ?", challengeID).
				UpdateColumn("solve_count", gorm.Expr("solve_count + ?", count)).Error
			if err != nil {
				return err
			}
		}

		for userID, delta := range userDeltas {
			if delta.points != 0 {
				err := tx.Model(&model.User{}).
					Where("id = ?", userID).
					UpdateColumn("points", gorm.Expr("points + ?", delta.points)).Error
				if err != nil {
					return err
				}
			}
			if delta.latestSolve != nil {
				err := tx.Model(&model.User{}).
					Where("id = ? AND (latest_solve IS NULL OR latest_solve < ?)", userID, *delta.latestSolve).
					UpdateColumn("latest_solve", *delta.latestSolve).Error
				if err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func existingUsers(tx *gorm.DB, snapshot *BufferSnapshot) (map[uuid.UUID]string, error) {
	idSet := make(map[uuid.UUID]bool)
	for _, b := range snapshot.Attempts {
		idSet[b.UserID] = true
	}
	for _, b := range snapshot.Solves {
		idSet[b.UserID] = true
	}
	for _, b := range snapshot.HintUsages {
		idSet[b.UserID] = true
	}

	users := make(map[uuid.UUID]string, len(idSet))
	if len(idSet) == 0 {
		return users, nil
	}

	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	var rows []model.User
	if err := tx.Select("id", "username").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		users[row.ID] = row.Username
	}
	return users, nil
}

func existingChallenges(tx *gorm.DB, snapshot *BufferSnapshot) (map[uuid.UUID]bool, error) {
	idSet := make(map[uuid.UUID]bool)
	for _, b := range snapshot.Attempts {
		idSet[b.ChallengeID] = true
	}
	for _, b := range snapshot.Solves {
		idSet[b.ChallengeID] = true
	}
	for _, b := range snapshot.HintUsages {
		idSet[b.ChallengeID] = true
	}
	return existingIDs(tx, &model.Challenge{}, idSet)
}

func existingHints(tx *gorm.DB, snapshot *BufferSnapshot) (map[uuid.UUID]bool, error) {
	idSet := make(map[uuid.UUID]bool)
	for _, b := range snapshot.HintUsages {
		idSet[b.HintID] = true
	}
	return existingIDs(tx, &model.Hint{}, idSet)
}

func existingIDs(tx *gorm.DB, m interface{}, idSet map[uuid.UUID]bool) (map[uuid.UUID]bool, error) {
	existing := make(map[uuid.UUID]bool, len(idSet))
	if len(idSet) == 0 {
		return existing, nil
	}

	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	var found []uuid.UUID
	if err := tx.Model(m).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

func (r *ledgerRepository) RebuildAggregates(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`
			UPDATE users
			SET points = COALESCE((
				SELECT SUM(points_change)
				FROM points_activities
				WHERE points_activities.user_id = users.id
			), 0)`).Error
		if err != nil {
			return err
		}

		return tx.Exec(`
			UPDATE users
			SET latest_solve = (
				SELECT MAX(occurred_at)
				FROM points_activities
				WHERE points_activities.user_id = users.id
				AND points_activities.points_change > 0
			)`).Error
	})
}

func (r *ledgerRepository) UserRanks(ctx context.Context, limit int) (*dto.RankList, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("visible_on_leaderboard = ? AND points > 0", true).
		Count(&total).Error
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&model.User{}).
		Where("visible_on_leaderboard = ? AND points > 0", true).
		Order("points DESC").Order("latest_solve ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var users []model.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}

	ranks := make([]dto.UserRank, 0, len(users))
	for i, u := range users {
		ranks = append(ranks, dto.UserRank{
			UserID:      u.ID,
			Username:    u.Username,
			Position:    i + 1,
			Points:      u.Points,
			LatestSolve: u.LatestSolve,
		})
	}

	return &dto.RankList{
		Ranks:             ranks,
		TotalParticipants: int(total),
	}, nil
}

func (r *ledgerRepository) UsersGraph(ctx context.Context, userIDs []uuid.UUID) ([]dto.UserGraph, error) {
	if len(userIDs) == 0 {
		return []dto.UserGraph{}, nil
	}

	var users []model.User
	err := r.db.WithContext(ctx).Select("id", "username", "created_at").
		Where("id IN ?", userIDs).Find(&users).Error
	if err != nil {
		return nil, err
	}

	var activities []model.PointsActivity
	err = r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("occurred_at ASC").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}

	byUser := make(map[uuid.UUID][]model.PointsActivity)
	for _, a := range activities {
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}

	graphs := make([]dto.UserGraph, 0, len(users))
	for _, u := range users {
		// Cumulative score over time, prefixed with a zero point at
		// account creation.
		points := []dto.ActivityPoint{{Score: 0, OccurredAt: u.CreatedAt}}
		score := 0
		for _, a := range byUser[u.ID] {
			score += a.PointsChange
			points = append(points, dto.ActivityPoint{Score: score, OccurredAt: a.OccurredAt})
		}
		graphs = append(graphs, dto.UserGraph{
			UserID:     u.ID,
			Username:   u.Username,
			Activities: points,
		})
	}

	return graphs, nil
}

func (r *ledgerRepository) UserGraph(ctx context.Context, userID uuid.UUID) (*dto.UserGraph, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select("id", "username", "points", "created_at").First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	// Walk the most recent entries backwards from the current total, so
	// a bounded slice of the ledger still yields correct running scores.
	var activities []model.PointsActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(100).
		Find(&activities).Error
	if err != nil {
		return nil, err
	}

	graph := &dto.UserGraph{
		UserID:     user.ID,
		Username:   user.Username,
		Activities: []dto.ActivityPoint{},
	}

	score := user.Points
	for _, a := range activities {
		graph.Activities = append([]dto.ActivityPoint{{Score: score, OccurredAt: a.OccurredAt}}, graph.Activities...)
		score -= a.PointsChange
	}

	return graph, nil
}

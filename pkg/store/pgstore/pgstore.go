// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package pgstore is the PostgreSQL store.MatchStore, built on gorm.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vocabattle/battle-matchmaker/pkg/common"
	"github.com/vocabattle/battle-matchmaker/pkg/constants"
	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/notify"
	"github.com/vocabattle/battle-matchmaker/pkg/store"
)

// candidateBatch bounds how many waiting opponents one Pair call tries to attach to.
const candidateBatch = 5

var Now = time.Now

type Store struct {
	db        *gorm.DB
	publisher notify.Publisher
	log       *logrus.Entry
}

var _ store.MatchStore = (*Store)(nil)

// Open connects to dsn and migrates the battle tables.
func Open(dsn string, publisher notify.Publisher, log *logrus.Entry) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := New(db, publisher, log)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func New(db *gorm.DB, publisher notify.Publisher, log *logrus.Entry) *Store {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &Store{db: db, publisher: publisher, log: log}
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&queueEntryRow{}, &matchRow{}, &participantRow{}); err != nil {
		return fmt.Errorf("migrate battle tables: %w", err)
	}
	return nil
}

// translate maps driver errors onto the store's sentinel errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(strings.ToLower(err.Error()), models.ActiveMatchConflictPattern):
		return fmt.Errorf("%w: %s", models.ErrActiveMatchConflict, err.Error())
	}
	return err
}

func (s *Store) Pair(ctx context.Context, req store.PairRequest) (store.PairResult, error) {
	if err := req.Validate(); err != nil {
		return store.PairResult{}, err
	}

	var result store.PairResult
	var events []notify.QueueEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Pairing is serialised per mode so two simultaneous callers cannot both end up waiting.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "battle_pair:"+string(req.Mode)).Error; err != nil {
			return err
		}
		var err error
		result, events, err = s.pairTx(tx, req)
		return err
	})
	if err != nil {
		return store.PairResult{}, translate(err)
	}

	for _, event := range events {
		if err := s.publisher.Publish(ctx, constants.QueueChannel(event.ParticipantID), event); err != nil {
			s.log.WithError(err).WithField("participant", event.ParticipantID).Warn("publish queue event failed")
		}
	}
	return result, nil
}

func (s *Store) pairTx(tx *gorm.DB, req store.PairRequest) (store.PairResult, []notify.QueueEvent, error) {
	now := Now().UTC()

	var own []queueEntryRow
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("participant_id = ? AND mode = ? AND status IN ?", req.ParticipantID, string(req.Mode),
			[]string{string(models.QueueStatusWaiting), string(models.QueueStatusMatched)}).
		Order("created_at DESC").
		Find(&own).Error; err != nil {
		return store.PairResult{}, nil, err
	}

	var mine *queueEntryRow
	for i := range own {
		e := own[i]
		if e.Status == string(models.QueueStatusWaiting) {
			if mine == nil {
				mine = &own[i]
			}
			continue
		}
		var live int64
		if err := tx.Model(&matchRow{}).
			Where("id = ? AND status IN ?", e.MatchID, statusStrings(models.MatchStatusInProgress)).
			Count(&live).Error; err != nil {
			return store.PairResult{}, nil, err
		}
		if live > 0 {
			return store.PairResult{Paired: true, EntryID: e.ID, MatchID: e.MatchID, OpponentID: e.OpponentID}, nil, nil
		}
	}

	ownWaitingMatch := ""
	if mine != nil {
		ownWaitingMatch = mine.MatchID
	}
	var conflicts int64
	if err := tx.Model(&matchRow{}).
		Where("status IN ? AND (player1_id = ? OR player2_id = ?) AND id <> ?",
			statusStrings(models.ActiveMatchStatuses...), req.ParticipantID, req.ParticipantID, ownWaitingMatch).
		Count(&conflicts).Error; err != nil {
		return store.PairResult{}, nil, err
	}
	if conflicts > 0 {
		return store.PairResult{}, nil, fmt.Errorf("pair %s: %w", req.ParticipantID, models.ErrActiveMatchConflict)
	}

	var candidates []queueEntryRow
	if err := candidateQuery(tx, req).Find(&candidates).Error; err != nil {
		return store.PairResult{}, nil, err
	}

	for _, opponent := range candidates {
		attach := tx.Model(&matchRow{}).
			Where("id = ? AND status = ? AND player2_id IS NULL", opponent.MatchID, string(models.MatchStatusWaiting)).
			Updates(map[string]interface{}{
				"player2_id":    req.ParticipantID,
				"player2_grade": req.ParticipantGrade,
				"status":        string(models.MatchStatusInProgress),
				"created_at":    now,
			})
		if attach.Error != nil {
			return store.PairResult{}, nil, attach.Error
		}
		if attach.RowsAffected == 0 {
			continue
		}

		if err := tx.Model(&queueEntryRow{}).Where("id = ?", opponent.ID).
			Updates(map[string]interface{}{"status": string(models.QueueStatusMatched), "opponent_id": req.ParticipantID}).Error; err != nil {
			return store.PairResult{}, nil, err
		}

		entryID := common.GenerateUUID()
		if mine != nil {
			entryID = mine.ID
			if err := cancelWaitingMatch(tx, mine.MatchID, now); err != nil {
				return store.PairResult{}, nil, err
			}
			if err := tx.Model(&queueEntryRow{}).Where("id = ?", mine.ID).Updates(map[string]interface{}{
				"status":      string(models.QueueStatusMatched),
				"rating":      req.Rating,
				"tolerance":   req.Tolerance,
				"match_id":    opponent.MatchID,
				"opponent_id": opponent.ParticipantID,
			}).Error; err != nil {
				return store.PairResult{}, nil, err
			}
		} else {
			row := queueEntryRow{
				ID:            entryID,
				ParticipantID: req.ParticipantID,
				Mode:          string(req.Mode),
				GradeFilter:   req.GradeFilter,
				Rating:        req.Rating,
				Tolerance:     req.Tolerance,
				Status:        string(models.QueueStatusMatched),
				MatchID:       opponent.MatchID,
				OpponentID:    opponent.ParticipantID,
				CreatedAt:     now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return store.PairResult{}, nil, err
			}
		}

		events := []notify.QueueEvent{
			{EntryID: opponent.ID, ParticipantID: opponent.ParticipantID, Mode: req.Mode, Status: models.QueueStatusMatched, MatchID: opponent.MatchID, OpponentID: req.ParticipantID},
			{EntryID: entryID, ParticipantID: req.ParticipantID, Mode: req.Mode, Status: models.QueueStatusMatched, MatchID: opponent.MatchID, OpponentID: opponent.ParticipantID},
		}
		return store.PairResult{Paired: true, EntryID: entryID, MatchID: opponent.MatchID, OpponentID: opponent.ParticipantID}, events, nil
	}

	if mine != nil {
		if err := tx.Model(&queueEntryRow{}).Where("id = ?", mine.ID).
			Updates(map[string]interface{}{"rating": req.Rating, "tolerance": req.Tolerance}).Error; err != nil {
			return store.PairResult{}, nil, err
		}
		return store.PairResult{EntryID: mine.ID, MatchID: mine.MatchID}, nil, nil
	}

	match := matchRow{
		ID:           common.GenerateULID(now),
		Mode:         string(req.Mode),
		Grade:        req.GradeFilter,
		Player1ID:    req.ParticipantID,
		Player1Grade: req.ParticipantGrade,
		Status:       string(models.MatchStatusWaiting),
		CreatedAt:    now,
	}
	if err := tx.Create(&match).Error; err != nil {
		return store.PairResult{}, nil, err
	}
	entry := queueEntryRow{
		ID:            common.GenerateUUID(),
		ParticipantID: req.ParticipantID,
		Mode:          string(req.Mode),
		GradeFilter:   req.GradeFilter,
		Rating:        req.Rating,
		Tolerance:     req.Tolerance,
		Status:        string(models.QueueStatusWaiting),
		MatchID:       match.ID,
		CreatedAt:     now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return store.PairResult{}, nil, err
	}
	return store.PairResult{EntryID: entry.ID, MatchID: match.ID}, nil, nil
}

// candidateQuery selects waiting opponents the request accepts, oldest first.
func candidateQuery(tx *gorm.DB, req store.PairRequest) *gorm.DB {
	q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND mode = ? AND participant_id <> ?", string(models.QueueStatusWaiting), string(req.Mode), req.ParticipantID).
		Where("rating BETWEEN ? AND ?", req.Rating-req.Tolerance, req.Rating+req.Tolerance)

	switch {
	case req.Mode == models.ModeRanked:
		q = q.Where("grade_filter = ?", req.GradeFilter)
	case req.GradeFilter != models.AnyGrade:
		q = q.Where("grade_filter IN ?", []int{models.AnyGrade, req.GradeFilter})
	}
	return q.Order("created_at ASC").Limit(candidateBatch)
}

func cancelWaitingMatch(tx *gorm.DB, matchID string, now time.Time) error {
	return tx.Model(&matchRow{}).
		Where("id = ? AND status = ? AND player2_id IS NULL", matchID, string(models.MatchStatusWaiting)).
		Updates(map[string]interface{}{"status": string(models.MatchStatusCancelled), "ended_at": now}).Error
}

func (s *Store) QueueStatus(ctx context.Context, participantID string, mode models.Mode) (store.QueueStatusResult, error) {
	var rows []queueEntryRow
	err := s.db.WithContext(ctx).
		Where("participant_id = ? AND mode = ?", participantID, string(mode)).
		Order("created_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return store.QueueStatusResult{}, translate(err)
	}
	if len(rows) == 0 {
		return store.QueueStatusResult{}, nil
	}
	e := rows[0].toModel()
	result := store.QueueStatusResult{Found: true, EntryID: e.ID, Status: e.Status}
	if e.Status == models.QueueStatusMatched {
		result.MatchID = e.MatchID
		result.OpponentID = e.OpponentID
	}
	return result, nil
}

func (s *Store) LeaveQueue(ctx context.Context, participantID string, mode models.Mode) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var waiting []queueEntryRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("participant_id = ? AND mode = ? AND status = ?", participantID, string(mode), string(models.QueueStatusWaiting)).
			Find(&waiting).Error; err != nil {
			return err
		}
		now := Now().UTC()
		for _, e := range waiting {
			if err := tx.Model(&queueEntryRow{}).Where("id = ? AND status = ?", e.ID, string(models.QueueStatusWaiting)).
				Update("status", string(models.QueueStatusCancelled)).Error; err != nil {
				return err
			}
			if err := cancelWaitingMatch(tx, e.MatchID, now); err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func (s *Store) UpdateQueueStatus(ctx context.Context, entryID string, from, to models.QueueStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&queueEntryRow{}).
		Where("id = ? AND status = ?", entryID, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func matchTransition(to models.MatchStatus) map[string]interface{} {
	updates := map[string]interface{}{"status": string(to)}
	if to.IsTerminal() {
		updates["ended_at"] = Now().UTC()
	}
	return updates
}

func (s *Store) UpdateMatchStatus(ctx context.Context, matchID string, from []models.MatchStatus, to models.MatchStatus) (bool, error) {
	res := s.db.WithContext(ctx).Model(&matchRow{}).
		Where("id = ? AND status IN ?", matchID, statusStrings(from...)).
		Updates(matchTransition(to))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) SweepQueue(ctx context.Context, sweep store.QueueSweep) (int64, error) {
	q := s.db.WithContext(ctx).Model(&queueEntryRow{}).Where("status = ?", string(sweep.From))
	if sweep.ParticipantID != "" {
		q = q.Where("participant_id = ?", sweep.ParticipantID)
	}
	if !sweep.CreatedBefore.IsZero() {
		q = q.Where("created_at < ?", sweep.CreatedBefore)
	}
	res := q.Update("status", string(sweep.To))
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) SweepMatches(ctx context.Context, sweep store.MatchSweep) (int64, error) {
	q := s.db.WithContext(ctx).Model(&matchRow{}).Where("status IN ?", statusStrings(sweep.From))
	if sweep.ParticipantID != "" {
		q = q.Where("(player1_id = ? OR player2_id = ?)", sweep.ParticipantID, sweep.ParticipantID)
	}
	if !sweep.CreatedBefore.IsZero() {
		q = q.Where("created_at < ?", sweep.CreatedBefore)
	}
	res := q.Updates(matchTransition(sweep.To))
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) LatestActiveMatch(ctx context.Context, participantID string) (*models.MatchRecord, error) {
	var row matchRow
	err := s.db.WithContext(ctx).
		Where("status IN ? AND (player1_id = ? OR player2_id = ?)",
			statusStrings(models.ActiveMatchStatuses...), participantID, participantID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return row.toModel()
}

func (s *Store) GetMatch(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	var row matchRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", matchID).Error; err != nil {
		return nil, translate(err)
	}
	return row.toModel()
}

func (s *Store) UpdateProgress(ctx context.Context, matchID string, participantID string, progress models.Progress) error {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	column := ""
	switch {
	case m.Player1ID == participantID:
		column = "player1_score"
	case m.HasOpponent() && *m.Player2ID == participantID:
		column = "player2_score"
	default:
		return fmt.Errorf("participant %s in match %s: %w", participantID, matchID, models.ErrNotFound)
	}

	res := s.db.WithContext(ctx).Model(&matchRow{}).
		Where("id = ? AND status IN ?", matchID, statusStrings(models.MatchStatusInProgress)).
		Update(column, int(progress))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrMatchNotActive
	}
	return nil
}

func (s *Store) FinishMatch(ctx context.Context, req store.FinishRequest) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&matchRow{}).
			Where("id = ? AND status IN ?", req.MatchID, statusStrings(models.MatchStatusInProgress)).
			Updates(map[string]interface{}{
				"status":    string(models.MatchStatusFinished),
				"ended_at":  req.EndedAt.UTC(),
				"winner_id": req.WinnerID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&matchRow{}).Where("id = ?", req.MatchID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return models.ErrNotFound
			}
			return models.ErrMatchNotActive
		}
		for _, p := range req.Participants {
			row := participantFromModel(p)
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func (s *Store) GetParticipant(ctx context.Context, participantID string) (*models.Participant, error) {
	var row participantRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", participantID).Error; err != nil {
		return nil, translate(err)
	}
	p := row.toModel()
	return &p, nil
}

func (s *Store) SaveParticipant(ctx context.Context, participant models.Participant) error {
	row := participantFromModel(participant)
	return translate(s.db.WithContext(ctx).Save(&row).Error)
}

// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/vocabattle/battle-matchmaker/pkg/envelope"
	"github.com/vocabattle/battle-matchmaker/pkg/matchmaker"
	"github.com/vocabattle/battle-matchmaker/pkg/models"
	"github.com/vocabattle/battle-matchmaker/pkg/rating"
	"github.com/vocabattle/battle-matchmaker/pkg/settlement"
)

type joinRequest struct {
	Mode        string `json:"mode"`
	Grade       int    `json:"grade"`
	DisplayName string `json:"display_name"`
	// AnyGrade opens a free search to every grade.
	AnyGrade bool `json:"any_grade"`
}

type sessionView struct {
	State      matchmaker.State `json:"state"`
	Mode       models.Mode      `json:"mode"`
	MatchID    string           `json:"match_id,omitempty"`
	OpponentID string           `json:"opponent_id,omitempty"`
	Tolerance  int              `json:"tolerance"`
	Error      string           `json:"error,omitempty"`
}

func viewOf(session *matchmaker.Session) sessionView {
	matchID, opponentID, _ := session.Match()
	return sessionView{
		State:      session.State(),
		Mode:       session.Mode(),
		MatchID:    matchID,
		OpponentID: opponentID,
		Tolerance:  session.Tolerance(),
		Error:      session.Err(),
	}
}

func errorBody(err error, message string) fiber.Map {
	return fiber.Map{"error": message, "code": models.ErrorCode(err)}
}

// statusFor maps core errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case models.IsActiveMatchConflict(err), errors.Is(err, models.ErrMatchNotActive):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrInvalidGradeFilter), errors.Is(err, models.ErrInvalidProgress), errors.Is(err, settlement.ErrInvalidWinner):
		return fiber.StatusBadRequest
	}
	return fiber.StatusServiceUnavailable
}

func (s *Server) joinQueue(c *fiber.Ctx) error {
	scope := scopeOf(c)
	participantID := c.Params("participantID")

	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	gradeFilter := req.Grade
	if mode == models.ModeFree && req.AnyGrade {
		gradeFilter = models.AnyGrade
	}
	if mode == models.ModeRanked && gradeFilter == models.AnyGrade {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(models.ErrInvalidGradeFilter, "ranked play needs a grade"))
	}

	participant, err := s.Store.GetParticipant(scope.Ctx, participantID)
	if errors.Is(err, models.ErrNotFound) {
		fresh := models.NewParticipant(participantID, req.DisplayName, req.Grade)
		if err := s.Store.SaveParticipant(scope.Ctx, fresh); err != nil {
			return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
		}
		participant = &fresh
	} else if err != nil {
		return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
	}

	session, replaced := s.sessionFor(*participant, mode, gradeFilter)
	if replaced != nil {
		if err := replaced.Leave(scope); err != nil {
			scope.Log.WithError(err).Warn("leaving previous search failed")
		}
	}

	scope = scope.WithField(envelope.ParticipantTag, participantID)
	if err := session.Join(scope, func(matchID, opponentID string) {
		scope.Log.WithField(envelope.MatchTag, matchID).WithField("opponent", opponentID).Info("battle ready")
	}); err != nil {
		message := session.Err()
		return c.Status(statusFor(err)).JSON(errorBody(err, message))
	}
	return c.Status(fiber.StatusAccepted).JSON(viewOf(session))
}

func (s *Server) queueState(c *fiber.Ctx) error {
	session := s.session(c.Params("participantID"))
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorBody(models.ErrNotFound, "no queue session"))
	}
	return c.JSON(viewOf(session))
}

func (s *Server) leaveQueue(c *fiber.Ctx) error {
	scope := scopeOf(c)
	participantID := c.Params("participantID")

	if session := s.session(participantID); session != nil {
		if err := session.Leave(scope); err != nil {
			return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
		}
		return c.SendStatus(fiber.StatusNoContent)
	}

	for _, mode := range []models.Mode{models.ModeRanked, models.ModeFree} {
		if err := s.Store.LeaveQueue(scope.Ctx, participantID, mode); err != nil {
			return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) resolveReconnect(c *fiber.Ctx) error {
	info, err := s.Resolver.Resolve(scopeOf(c), c.Params("participantID"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
	}
	if info == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(info)
}

func (s *Server) dismissReconnect(c *fiber.Ctx) error {
	if err := s.Resolver.Dismiss(scopeOf(c), c.Params("participantID"), c.Params("matchID")); err != nil {
		return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) settleMatch(c *fiber.Ctx) error {
	var outcome settlement.Outcome
	if err := c.BodyParser(&outcome); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	result, err := s.Settler.Settle(scopeOf(c), c.Params("matchID"), outcome)
	if err != nil {
		return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
	}
	return c.JSON(result)
}

type progressRequest struct {
	ParticipantID string `json:"participant_id"`
	QuestionIndex int    `json:"question_index"`
	Score         int    `json:"score"`
	Finished      bool   `json:"finished"`
}

func (s *Server) reportProgress(c *fiber.Ctx) error {
	var req progressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	progress, err := models.EncodeProgress(req.Finished, req.QuestionIndex, req.Score)
	if err != nil {
		return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
	}
	if err = s.Store.UpdateProgress(scopeOf(c).Ctx, c.Params("matchID"), req.ParticipantID, progress); err != nil {
		return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) triggerSweep(c *fiber.Ctx) error {
	report, ran, err := s.Reaper.Trigger(scopeOf(c))
	if err != nil {
		return c.Status(statusFor(err)).JSON(errorBody(err, err.Error()))
	}
	return c.JSON(fiber.Map{"ran": ran, "report": report})
}

func (s *Server) previewRating(c *fiber.Ctx) error {
	a, errA := strconv.Atoi(c.Query("a"))
	b, errB := strconv.Atoi(c.Query("b"))
	if errA != nil || errB != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "a and b must be integer ratings"})
	}

	var outcome rating.Outcome
	switch c.Query("outcome", "win") {
	case "win":
		outcome = rating.Win
	case "loss":
		outcome = rating.Loss
	case "draw":
		outcome = rating.Draw
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "outcome must be win, loss or draw"})
	}

	return c.JSON(fiber.Map{
		"expected_score": rating.ExpectedScore(float64(a), float64(b)),
		"change":         rating.Change(a, b, outcome, c.QueryBool("new")),
	})
}

package services

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/logger"
	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/types"
)

// TournamentService runs the elimination lifecycle of FULL pools: conversion
// into a phased tournament, deadline sweeps, per-phase elimination, and the
// final payout to the winner.
type TournamentService struct {
	DB      *gorm.DB
	Wallets *WalletService
}

func NewTournamentService(db *gorm.DB, wallets *WalletService) *TournamentService {
	return &TournamentService{DB: db, Wallets: wallets}
}

// PhaseInput describes one round of a tournament schedule.
type PhaseInput struct {
	GameID          string                 `json:"game_id"`
	LevelID         *string                `json:"level_id,omitempty"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	DurationHours   int                    `json:"duration_hours"`
	EliminationRule models.EliminationRule `json:"elimination_rule"`
}

// TournamentCreate configures the conversion of a full pool.
type TournamentCreate struct {
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	ScheduledStartAt *time.Time   `json:"scheduled_start_at,omitempty"`
	Phases           []PhaseInput `json:"phases"`
}

// ConvertPoolToTournament turns a FULL pool into a READY tournament with its
// phase schedule. The pool moves to TOURNAMENT_READY in the same transaction;
// nothing is written if any step fails.
func (s *TournamentService) ConvertPoolToTournament(poolID string, in TournamentCreate) (*models.Tournament, error) {
	if in.Title == "" {
		return nil, types.New(types.ErrInvalidState, "tournament title is required")
	}
	if len(in.Phases) == 0 {
		return nil, types.New(types.ErrInvalidState, "tournament needs at least one phase")
	}
	for i, ph := range in.Phases {
		if ph.GameID == "" {
			return nil, types.New(types.ErrInvalidState, "phase %d has no game", i+1)
		}
		if err := ph.EliminationRule.Validate(); err != nil {
			return nil, types.New(types.ErrInvalidState, "phase %d: %v", i+1, err)
		}
	}

	var tournament models.Tournament
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var pool models.RafflePool
		if err := forUpdate(tx).First(&pool, "pool_id = ?", poolID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.New(types.ErrPoolNotFound, "pool %s not found", poolID)
			}
			return err
		}
		if pool.State != models.PoolStateFull {
			return types.New(types.ErrPoolNotFull, "pool %s is %s, only FULL pools convert", poolID, pool.State)
		}

		tournament = models.Tournament{
			ID:               uuid.NewString(),
			PoolID:           poolID,
			Title:            in.Title,
			Slug:             slug.Make(in.Title),
			Description:      in.Description,
			Status:           models.TournamentStatusReady,
			TotalPhases:      len(in.Phases),
			ScheduledStartAt: in.ScheduledStartAt,
		}
		if err := tx.Create(&tournament).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return types.New(types.ErrInvalidState, "pool %s already has a tournament", poolID)
			}
			return err
		}

		for i, ph := range in.Phases {
			ruleJSON, err := ph.EliminationRule.ToJSON()
			if err != nil {
				return err
			}
			duration := ph.DurationHours
			if duration < 0 {
				duration = 0
			}
			phase := models.TournamentPhase{
				ID:              uuid.NewString(),
				TournamentID:    tournament.ID,
				PhaseNumber:     i + 1,
				GameID:          ph.GameID,
				LevelID:         ph.LevelID,
				Title:           ph.Title,
				Description:     ph.Description,
				DurationHours:   duration,
				EliminationRule: ruleJSON,
				Status:          models.PhaseStatusScheduled,
			}
			if err := tx.Create(&phase).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.RafflePool{}).
			Where("pool_id = ?", poolID).
			Update("state", models.PoolStateTournamentReady).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info("pool converted to tournament",
		zap.String("pool_id", poolID),
		zap.String("tournament_id", tournament.ID),
		zap.Int("total_phases", tournament.TotalPhases))
	return &tournament, nil
}

// Get loads a tournament with its phases.
func (s *TournamentService) Get(tournamentID string) (*models.Tournament, []models.TournamentPhase, error) {
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, types.New(types.ErrTournamentNotFound, "tournament %s not found", tournamentID)
		}
		return nil, nil, err
	}
	var phases []models.TournamentPhase
	if err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("phase_number ASC").Find(&phases).Error; err != nil {
		return nil, nil, err
	}
	return &tournament, phases, nil
}

// ListAll returns every tournament, newest first.
func (s *TournamentService) ListAll() ([]models.Tournament, error) {
	var tournaments []models.Tournament
	err := s.DB.Order("created_at DESC").Find(&tournaments).Error
	return tournaments, err
}

// ListParticipants returns the participants of one phase, best first.
func (s *TournamentService) ListParticipants(phaseID string) ([]models.TournamentParticipant, error) {
	var phase models.TournamentPhase
	if err := s.DB.First(&phase, "id = ?", phaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.New(types.ErrPhaseNotFound, "phase %s not found", phaseID)
		}
		return nil, err
	}
	var participants []models.TournamentParticipant
	if err := s.DB.Where("phase_id = ?", phaseID).Find(&participants).Error; err != nil {
		return nil, err
	}
	sortParticipants(participants)
	return participants, nil
}

// StartTournamentManually activates a READY tournament ahead of (or without)
// its scheduled start.
func (s *TournamentService) StartTournamentManually(tournamentID string) (*models.Tournament, error) {
	var tournament models.Tournament
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&tournament, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.New(types.ErrTournamentNotFound, "tournament %s not found", tournamentID)
			}
			return err
		}
		if tournament.Status != models.TournamentStatusReady {
			return types.New(types.ErrInvalidState, "tournament %s is %s, only READY tournaments start", tournamentID, tournament.Status)
		}
		return s.activateTournamentTx(tx, &tournament)
	})
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

// StartScheduledTournaments activates every READY tournament whose scheduled
// start time has passed. Failures are logged per tournament and do not stop
// the sweep.
func (s *TournamentService) StartScheduledTournaments() int {
	now := time.Now().UTC()
	var due []models.Tournament
	if err := s.DB.Where("status = ? AND scheduled_start_at IS NOT NULL AND scheduled_start_at <= ?",
		models.TournamentStatusReady, now).Find(&due).Error; err != nil {
		logger.Error("scheduled tournament scan failed", zap.Error(err))
		return 0
	}

	started := 0
	for i := range due {
		tournament := due[i]
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := forUpdate(tx).First(&tournament, "id = ?", tournament.ID).Error; err != nil {
				return err
			}
			if tournament.Status != models.TournamentStatusReady {
				return nil
			}
			return s.activateTournamentTx(tx, &tournament)
		})
		if err != nil {
			logger.Error("scheduled tournament start failed",
				zap.String("tournament_id", tournament.ID), zap.Error(err))
			continue
		}
		started++
	}
	return started
}

// activateTournamentTx moves a READY tournament to ACTIVE, activates phase 1
// and seeds its participants from the pool's ticket holders.
func (s *TournamentService) activateTournamentTx(tx *gorm.DB, tournament *models.Tournament) error {
	var first models.TournamentPhase
	if err := tx.Where("tournament_id = ? AND phase_number = 1", tournament.ID).
		First(&first).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.New(types.ErrPhaseNotFound, "tournament %s has no first phase", tournament.ID)
		}
		return err
	}

	seeded, err := s.seedFirstPhaseTx(tx, tournament, &first)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	deadline := now.Add(time.Duration(first.DurationHours) * time.Hour)
	if err := tx.Model(&models.TournamentPhase{}).Where("id = ?", first.ID).Updates(map[string]interface{}{
		"status":             models.PhaseStatusActive,
		"started_at":         now,
		"deadline_at":        deadline,
		"participants_count": seeded,
	}).Error; err != nil {
		return err
	}

	if err := tx.Model(&models.Tournament{}).Where("id = ?", tournament.ID).Updates(map[string]interface{}{
		"status":        models.TournamentStatusActive,
		"current_phase": 1,
	}).Error; err != nil {
		return err
	}
	tournament.Status = models.TournamentStatusActive
	tournament.CurrentPhase = 1

	logger.Info("tournament started",
		zap.String("tournament_id", tournament.ID),
		zap.Int("participants", seeded))
	return nil
}

// seedFirstPhaseTx creates a fresh participant row for every distinct ticket
// holder of the backing pool.
func (s *TournamentService) seedFirstPhaseTx(tx *gorm.DB, tournament *models.Tournament, phase *models.TournamentPhase) (int, error) {
	var tickets []models.Ticket
	if err := tx.Where("pool_id = ?", tournament.PoolID).
		Order("ticket_num ASC").Find(&tickets).Error; err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(tickets))
	seeded := 0
	for _, t := range tickets {
		if seen[t.UserID] {
			continue
		}
		seen[t.UserID] = true
		p := models.TournamentParticipant{
			ID:           uuid.NewString(),
			TournamentID: tournament.ID,
			PhaseID:      phase.ID,
			PlayerID:     t.UserID,
		}
		if err := tx.Create(&p).Error; err != nil {
			return 0, err
		}
		seeded++
	}
	return seeded, nil
}

// RecordSession folds one play session into the player's phase record: best
// score is the maximum seen, best time the minimum.
func (s *TournamentService) RecordSession(phaseID, playerID string, score int64, timeSeconds *int64) (*models.TournamentParticipant, error) {
	var participant models.TournamentParticipant
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var phase models.TournamentPhase
		if err := tx.First(&phase, "id = ?", phaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.New(types.ErrPhaseNotFound, "phase %s not found", phaseID)
			}
			return err
		}
		if phase.Status != models.PhaseStatusActive {
			return types.New(types.ErrInvalidState, "phase %s is %s, sessions only count on active phases", phaseID, phase.Status)
		}
		if phase.IsExpired(time.Now().UTC()) {
			return types.New(types.ErrInvalidState, "phase %s deadline has passed", phaseID)
		}

		if err := forUpdate(tx).
			Where("phase_id = ? AND player_id = ?", phaseID, playerID).
			First(&participant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.New(types.ErrForbidden, "player %s is not in phase %s", playerID, phaseID)
			}
			return err
		}

		if score > participant.BestScore {
			participant.BestScore = score
		}
		if timeSeconds != nil && (participant.BestTimeSeconds == nil || *timeSeconds < *participant.BestTimeSeconds) {
			t := *timeSeconds
			participant.BestTimeSeconds = &t
		}
		participant.SessionsCount++
		return tx.Save(&participant).Error
	})
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// CheckPhaseDeadlines processes every active phase whose deadline has passed.
// Each phase is handled in its own transaction so one failure cannot stall
// the others; a phase that fails is retried on the next sweep.
func (s *TournamentService) CheckPhaseDeadlines() int {
	return s.checkPhaseDeadlinesAt(time.Now().UTC())
}

func (s *TournamentService) checkPhaseDeadlinesAt(now time.Time) int {
	var expired []models.TournamentPhase
	if err := s.DB.Where("status = ? AND deadline_at IS NOT NULL AND deadline_at <= ?",
		models.PhaseStatusActive, now).Find(&expired).Error; err != nil {
		logger.Error("phase deadline scan failed", zap.Error(err))
		return 0
	}

	processed := 0
	for _, phase := range expired {
		if err := s.ProcessPhaseElimination(phase.ID); err != nil {
			logger.Error("phase elimination failed",
				zap.String("phase_id", phase.ID),
				zap.String("tournament_id", phase.TournamentID),
				zap.Error(err))
			continue
		}
		processed++
	}
	return processed
}

// ProcessPhaseElimination closes one expired phase: evaluates the elimination
// rule over its participants, marks qualified and eliminated rows, then either
// opens the next phase with the survivors or completes the tournament and pays
// the winner. The whole step is one transaction.
func (s *TournamentService) ProcessPhaseElimination(phaseID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var phase models.TournamentPhase
		if err := forUpdate(tx).First(&phase, "id = ?", phaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.New(types.ErrPhaseNotFound, "phase %s not found", phaseID)
			}
			return err
		}
		if phase.Status != models.PhaseStatusActive {
			// Already processed by a concurrent sweep.
			return nil
		}

		var participants []models.TournamentParticipant
		if err := tx.Where("phase_id = ?", phase.ID).Find(&participants).Error; err != nil {
			return err
		}
		sortParticipants(participants)

		qualified := applyEliminationRules(phase.Rule(), participants)
		now := time.Now().UTC()
		for i := range participants {
			p := &participants[i]
			if qualified[p.PlayerID] {
				p.Qualified = true
				p.QualifiedAt = &now
			} else {
				p.EliminatedAt = &now
			}
			if err := tx.Save(p).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.TournamentPhase{}).Where("id = ?", phase.ID).Updates(map[string]interface{}{
			"status":          models.PhaseStatusCompleted,
			"qualified_count": len(qualified),
		}).Error; err != nil {
			return err
		}

		logger.Info("phase completed",
			zap.String("phase_id", phase.ID),
			zap.Int("participants", len(participants)),
			zap.Int("qualified", len(qualified)))

		return s.setupNextPhaseOrCompleteTx(tx, &phase, participants, qualified)
	})
}

// setupNextPhaseOrCompleteTx advances the tournament past a completed phase.
func (s *TournamentService) setupNextPhaseOrCompleteTx(tx *gorm.DB, phase *models.TournamentPhase, participants []models.TournamentParticipant, qualified map[string]bool) error {
	var tournament models.Tournament
	if err := forUpdate(tx).First(&tournament, "id = ?", phase.TournamentID).Error; err != nil {
		return err
	}

	if phase.PhaseNumber >= tournament.TotalPhases {
		return s.completeTournamentTx(tx, &tournament, participants, qualified)
	}

	var next models.TournamentPhase
	if err := tx.Where("tournament_id = ? AND phase_number = ?",
		tournament.ID, phase.PhaseNumber+1).First(&next).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Broken schedule: there is no phase to advance into. Cancel the
			// tournament and keep the phase closure; failing here would leave
			// the phase ACTIVE and every later sweep would hit the same gap.
			logger.Error("tournament schedule has a gap, cancelling",
				zap.String("tournament_id", tournament.ID),
				zap.Int("missing_phase", phase.PhaseNumber+1))
			return tx.Model(&models.Tournament{}).Where("id = ?", tournament.ID).
				Update("status", models.TournamentStatusCancelled).Error
		}
		return err
	}

	// Survivors get fresh rows with stats reset; nothing carries over but the
	// player identity.
	advanced := 0
	for _, p := range participants {
		if !qualified[p.PlayerID] {
			continue
		}
		row := models.TournamentParticipant{
			ID:           uuid.NewString(),
			TournamentID: tournament.ID,
			PhaseID:      next.ID,
			PlayerID:     p.PlayerID,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		advanced++
	}

	now := time.Now().UTC()
	deadline := now.Add(time.Duration(next.DurationHours) * time.Hour)
	if err := tx.Model(&models.TournamentPhase{}).Where("id = ?", next.ID).Updates(map[string]interface{}{
		"status":             models.PhaseStatusActive,
		"started_at":         now,
		"deadline_at":        deadline,
		"participants_count": advanced,
	}).Error; err != nil {
		return err
	}

	if err := tx.Model(&models.Tournament{}).Where("id = ?", tournament.ID).
		Update("current_phase", next.PhaseNumber).Error; err != nil {
		return err
	}

	logger.Info("next phase started",
		zap.String("tournament_id", tournament.ID),
		zap.Int("phase_number", next.PhaseNumber),
		zap.Int("participants", advanced))
	return nil
}

// completeTournamentTx closes the tournament after its final phase, flips the
// pool to TOURNAMENT_COMPLETED and credits the prize payout to the top-ranked
// qualified participant.
func (s *TournamentService) completeTournamentTx(tx *gorm.DB, tournament *models.Tournament, participants []models.TournamentParticipant, qualified map[string]bool) error {
	now := time.Now().UTC()
	if err := tx.Model(&models.Tournament{}).Where("id = ?", tournament.ID).Updates(map[string]interface{}{
		"status":       models.TournamentStatusCompleted,
		"completed_at": now,
	}).Error; err != nil {
		return err
	}

	var pool models.RafflePool
	if err := forUpdate(tx).First(&pool, "pool_id = ?", tournament.PoolID).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.RafflePool{}).Where("pool_id = ?", pool.PoolID).
		Update("state", models.PoolStateTournamentCompleted).Error; err != nil {
		return err
	}

	var winner *models.TournamentParticipant
	for i := range participants {
		if qualified[participants[i].PlayerID] {
			winner = &participants[i]
			break
		}
	}
	if winner == nil {
		logger.Warn("tournament completed with no qualified winner",
			zap.String("tournament_id", tournament.ID))
		return nil
	}

	wallet, err := s.Wallets.getOrCreateWalletTx(tx, winner.PlayerID)
	if err != nil {
		return err
	}
	payout := pool.TicketPriceCents * int64(pool.TicketsRequired)
	if _, err := s.Wallets.PostCreditTx(tx, wallet.WalletID, payout,
		models.LedgerReasonPrizePayout, LedgerRefs{PoolID: &pool.PoolID}); err != nil {
		return err
	}

	logger.Info("tournament completed",
		zap.String("tournament_id", tournament.ID),
		zap.String("winner_id", winner.PlayerID),
		zap.Int64("payout_cents", payout))
	return nil
}

// sortParticipants ranks best score first, ties broken by fastest time, with
// missing times ranked last among equals.
func sortParticipants(participants []models.TournamentParticipant) {
	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.BestScore != b.BestScore {
			return a.BestScore > b.BestScore
		}
		switch {
		case a.BestTimeSeconds == nil && b.BestTimeSeconds == nil:
			return false
		case a.BestTimeSeconds == nil:
			return false
		case b.BestTimeSeconds == nil:
			return true
		default:
			return *a.BestTimeSeconds < *b.BestTimeSeconds
		}
	})
}

// applyEliminationRules evaluates the phase rule against ranked participants
// and returns the set of qualifying player ids. Participants must already be
// sorted best first. An empty or unrecognized rule qualifies everyone.
func applyEliminationRules(rule models.EliminationRule, ranked []models.TournamentParticipant) map[string]bool {
	qualified := make(map[string]bool, len(ranked))

	switch rule.Type {
	case models.RuleTopPercentage:
		keep := keepCount(len(ranked), rule.Value)
		for i := 0; i < keep; i++ {
			qualified[ranked[i].PlayerID] = true
		}

	case models.RuleMinScore:
		for _, p := range ranked {
			if p.BestScore >= rule.Value {
				qualified[p.PlayerID] = true
			}
		}

	case models.RuleMaxTime:
		for _, p := range ranked {
			if p.BestTimeSeconds != nil && *p.BestTimeSeconds <= rule.Value {
				qualified[p.PlayerID] = true
			}
		}

	case models.RuleCombined:
		// Score floor first, then the fastest TimePercentage% of survivors.
		var survivors []models.TournamentParticipant
		for _, p := range ranked {
			if p.BestScore >= rule.MinScore {
				survivors = append(survivors, p)
			}
		}
		sort.SliceStable(survivors, func(i, j int) bool {
			a, b := survivors[i], survivors[j]
			switch {
			case a.BestTimeSeconds == nil && b.BestTimeSeconds == nil:
				return false
			case a.BestTimeSeconds == nil:
				return false
			case b.BestTimeSeconds == nil:
				return true
			default:
				return *a.BestTimeSeconds < *b.BestTimeSeconds
			}
		})
		keep := keepCount(len(survivors), int64(rule.TimePercentage))
		for i := 0; i < keep; i++ {
			qualified[survivors[i].PlayerID] = true
		}

	default:
		// No rule or an unknown rule: everyone advances.
		for _, p := range ranked {
			qualified[p.PlayerID] = true
		}
	}
	return qualified
}

// keepCount floors a percentage of n, keeping at least one participant
// whenever anyone is present.
func keepCount(n int, percentage int64) int {
	if n == 0 {
		return 0
	}
	keep := int(int64(n) * percentage / 100)
	if keep < 1 {
		keep = 1
	}
	if keep > n {
		keep = n
	}
	return keep
}

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	TournamentStatusReady     = "ready"
	TournamentStatusActive    = "active"
	TournamentStatusCompleted = "completed"
	TournamentStatusCancelled = "cancelled"
)

const (
	PhaseStatusScheduled = "scheduled"
	PhaseStatusActive    = "active"
	PhaseStatusCompleted = "completed"
	PhaseStatusCancelled = "cancelled"
)

// Elimination rule variants. An empty type means the permissive default:
// every participant qualifies.
const (
	RuleTopPercentage = "top_percentage"
	RuleMinScore      = "min_score"
	RuleMaxTime       = "max_time"
	RuleCombined      = "combined"
)

// EliminationRule selects which participants survive a phase.
//   - top_percentage: Value is the percentage of top-ranked participants kept.
//   - min_score:      Value is the minimum best_score required.
//   - max_time:       Value is the maximum best_time_seconds allowed.
//   - combined:       MinScore filters first, then the fastest TimePercentage%
//     of the survivors qualify.
type EliminationRule struct {
	Type           string `json:"type"`
	Value          int64  `json:"value,omitempty"`
	MinScore       int64  `json:"min_score,omitempty"`
	TimePercentage int    `json:"time_percentage,omitempty"`
}

// Validate rejects unknown rule types at configuration time. The evaluation
// default for unknown rows stays permissive, but nothing with an unknown type
// is accepted into a schedule.
func (r EliminationRule) Validate() error {
	switch r.Type {
	case "", RuleTopPercentage, RuleMinScore, RuleMaxTime, RuleCombined:
		return nil
	}
	return fmt.Errorf("unknown elimination rule type %q", r.Type)
}

func (r EliminationRule) ToJSON() (datatypes.JSON, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// Tournament runs the elimination rounds of one FULL pool.
type Tournament struct {
	ID               string     `json:"id" gorm:"primaryKey;type:uuid"`
	PoolID           string     `json:"pool_id" gorm:"type:uuid;not null;uniqueIndex:uq_tournament_pool"`
	Title            string     `json:"title" gorm:"size:200;not null"`
	Slug             string     `json:"slug" gorm:"index"`
	Description      string     `json:"description" gorm:"type:text"`
	Status           string     `json:"status" gorm:"not null;default:'ready'"`
	TotalPhases      int        `json:"total_phases" gorm:"not null"`
	CurrentPhase     int        `json:"current_phase" gorm:"not null;default:0"`
	ScheduledStartAt *time.Time `json:"scheduled_start_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// TournamentPhase is one timed elimination round.
type TournamentPhase struct {
	ID                string         `json:"id" gorm:"primaryKey;type:uuid"`
	TournamentID      string         `json:"tournament_id" gorm:"type:uuid;not null;uniqueIndex:uq_phase_tournament_number,priority:1"`
	PhaseNumber       int            `json:"phase_number" gorm:"not null;uniqueIndex:uq_phase_tournament_number,priority:2"`
	GameID            string         `json:"game_id" gorm:"type:uuid;not null"`
	LevelID           *string        `json:"level_id,omitempty" gorm:"type:uuid"`
	Title             string         `json:"title" gorm:"size:100;not null"`
	Description       string         `json:"description" gorm:"type:text"`
	DurationHours     int            `json:"duration_hours" gorm:"not null;default:72"`
	EliminationRule   datatypes.JSON `json:"elimination_rule"`
	Status            string         `json:"status" gorm:"not null;default:'scheduled'"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	DeadlineAt        *time.Time     `json:"deadline_at,omitempty"`
	ParticipantsCount int            `json:"participants_count" gorm:"not null;default:0"`
	QualifiedCount    int            `json:"qualified_count" gorm:"not null;default:0"`
	CreatedAt         time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// Rule decodes the stored elimination rule. A missing or unreadable column
// yields the permissive default rule.
func (p *TournamentPhase) Rule() EliminationRule {
	var rule EliminationRule
	if len(p.EliminationRule) == 0 {
		return rule
	}
	if err := json.Unmarshal(p.EliminationRule, &rule); err != nil {
		return EliminationRule{}
	}
	return rule
}

// IsExpired reports whether the phase deadline has passed at the given time.
func (p *TournamentPhase) IsExpired(now time.Time) bool {
	return p.DeadlineAt != nil && now.After(*p.DeadlineAt)
}

// TournamentParticipant is one player's record within one phase. A fresh row
// is created for every phase a player advances into, stats reset.
type TournamentParticipant struct {
	ID              string     `json:"id" gorm:"primaryKey;type:uuid"`
	TournamentID    string     `json:"tournament_id" gorm:"type:uuid;not null;index"`
	PhaseID         string     `json:"phase_id" gorm:"type:uuid;not null;uniqueIndex:uq_participant_phase_player,priority:1"`
	PlayerID        string     `json:"player_id" gorm:"type:uuid;not null;uniqueIndex:uq_participant_phase_player,priority:2"`
	BestScore       int64      `json:"best_score" gorm:"not null;default:0"`
	BestTimeSeconds *int64     `json:"best_time_seconds,omitempty"`
	SessionsCount   int        `json:"sessions_count" gorm:"not null;default:0"`
	Qualified       bool       `json:"qualified" gorm:"not null;default:false"`
	QualifiedAt     *time.Time `json:"qualified_at,omitempty"`
	EliminatedAt    *time.Time `json:"eliminated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

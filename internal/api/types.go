package api

import (
	"github.com/MJE43/rps-gauntlet/internal/game"
	"github.com/MJE43/rps-gauntlet/internal/session"
	"github.com/MJE43/rps-gauntlet/internal/strategy"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

const (
	// Input validation errors
	ErrTypeValidation  = "validation_error"
	ErrTypeInvalidMove = "invalid_move"

	// Game errors
	ErrTypeLevelNotFound    = "level_not_found"
	ErrTypeLevelLocked      = "level_locked"
	ErrTypeSessionNotFound  = "session_not_found"
	ErrTypeSessionCompleted = "session_completed"
	ErrTypeNotInProgress    = "session_not_in_progress"
	ErrTypeInputLocked      = "input_locked"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeInvalidMove:
		return CategoryValidation
	case ErrTypeLevelNotFound, ErrTypeLevelLocked, ErrTypeSessionNotFound,
		ErrTypeSessionCompleted, ErrTypeNotInProgress, ErrTypeInputLocked:
		return CategoryGame
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

type LevelsResponse struct {
	Levels  []game.LevelView `json:"levels"`
	Version string           `json:"version"`
}

type StrategiesResponse struct {
	Strategies []strategy.Spec `json:"strategies"`
	Version    string          `json:"version"`
}

// StartRequest opens a session on a level.
type StartRequest struct {
	LevelID string `json:"level_id"`
}

// MoveRequest submits one move: "rock", "paper" or "scissors" (or r/p/s).
type MoveRequest struct {
	Move string `json:"move"`
}

type HistoryResponse struct {
	SessionID string                 `json:"session_id"`
	History   []session.HistoryEntry `json:"history"`
}

// VerifyRequest recomputes a revealed seed's hash and its random stream.
type VerifyRequest struct {
	ServerSeed string `json:"server_seed"`
	ClientSeed string `json:"client_seed"`
	Nonce      uint64 `json:"nonce"`
	Count      int    `json:"count,omitempty"`
	// SeedHash, when given, is compared against the recomputed hash.
	SeedHash string `json:"seed_hash,omitempty"`
}

type VerifyResponse struct {
	SeedHash string    `json:"seed_hash"`
	Matches  *bool     `json:"matches,omitempty"`
	Floats   []float64 `json:"floats"`
}

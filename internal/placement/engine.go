// Package placement moves equipment between slots. A move locks the
// equipment and target slot, rejects occupied targets, updates the equipment
// and appends one history row, all in a single transaction.
package placement

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/models"
)

const maxDescriptionLen = 1000

// MoveCommand asks for one piece of equipment to be placed into a slot.
type MoveCommand struct {
	EquipmentID int64
	ToSlotID    *int64
	StatusAfter *string
	Description *string
	PerformedBy *int64
}

// MoveResult describes a committed move.
type MoveResult struct {
	HistoryID    int64                  `json:"history_id"`
	EquipmentID  int64                  `json:"equipment_id"`
	FromSlotID   *int64                 `json:"from_slot_id"`
	ToSlotID     int64                  `json:"to_slot_id"`
	StatusBefore models.ReadinessStatus `json:"status_before"`
	StatusAfter  models.ReadinessStatus `json:"status_after"`
	Description  *string                `json:"description"`
	PerformedBy  *int64                 `json:"performed_by"`
	MovedAt      time.Time              `json:"moved_at"`
}

// Recorder receives one observation per move attempt.
type Recorder interface {
	ObserveMove(outcome string, elapsed time.Duration)
}

type Engine struct {
	store    Store
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:  store,
		logger: logger.Named("placement"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type validMove struct {
	equipmentID int64
	toSlotID    int64
	statusAfter *models.ReadinessStatus
	description *string
	performedBy *int64
}

func validate(cmd MoveCommand) (validMove, error) {
	v := validMove{equipmentID: cmd.EquipmentID, performedBy: cmd.PerformedBy}
	if cmd.EquipmentID <= 0 {
		return v, apperr.InvalidArgument("equipment_id must be a positive integer")
	}
	if cmd.ToSlotID == nil {
		return v, apperr.InvalidArgument("to_slot_id required")
	}
	if *cmd.ToSlotID <= 0 {
		return v, apperr.InvalidArgument("to_slot_id must be a positive integer")
	}
	v.toSlotID = *cmd.ToSlotID

	if cmd.StatusAfter != nil && strings.TrimSpace(*cmd.StatusAfter) != "" {
		st, err := models.ParseReadinessStatus(*cmd.StatusAfter)
		if err != nil {
			return v, apperr.InvalidArgument("status_after must be one of Ready, Disewa, Servis, Kalibrasi, Rusak, Hilang")
		}
		v.statusAfter = &st
	}

	if cmd.Description != nil {
		d := strings.TrimSpace(*cmd.Description)
		if utf8.RuneCountInString(d) > maxDescriptionLen {
			return v, apperr.InvalidArgument("description must be at most %d characters", maxDescriptionLen)
		}
		if d != "" {
			v.description = &d
		}
	}
	return v, nil
}

// Move relocates equipment into the target slot. On error nothing has changed.
func (e *Engine) Move(ctx context.Context, cmd MoveCommand) (*MoveResult, error) {
	start := time.Now()
	res, err := e.move(ctx, cmd)
	e.observe(cmd, res, err, time.Since(start))
	return res, err
}

func (e *Engine) move(ctx context.Context, cmd MoveCommand) (*MoveResult, error) {
	mv, err := validate(cmd)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Storage(err, true)
	}

	var res *MoveResult
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		eq, found, err := tx.LockEquipment(ctx, mv.equipmentID)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound(apperr.CodeEquipmentNotFound, "equipment not found")
		}

		found, err = tx.LockSlot(ctx, mv.toSlotID)
		if err != nil {
			return err
		}
		if !found {
			return apperr.NotFound(apperr.CodeSlotNotFound, "slot not found")
		}

		occupant, err := tx.SlotOccupant(ctx, mv.toSlotID, mv.equipmentID)
		if err != nil {
			return err
		}
		if occupant != nil {
			return apperr.Conflict(apperr.CodeSlotOccupied, "target slot is occupied; choose a different slot")
		}

		newStatus := eq.Status
		if mv.statusAfter != nil {
			newStatus = *mv.statusAfter
		}
		at := e.now()

		if err := tx.UpdatePlacement(ctx, eq.ID, mv.toSlotID, newStatus, at); err != nil {
			return err
		}

		entry := HistoryEntry{
			EquipmentID:  eq.ID,
			FromSlotID:   eq.CurrentSlotID,
			ToSlotID:     mv.toSlotID,
			StatusBefore: eq.Status,
			StatusAfter:  newStatus,
			Description:  mv.description,
			PerformedBy:  mv.performedBy,
			CreatedAt:    at,
		}
		historyID, err := tx.InsertHistory(ctx, entry)
		if err != nil {
			return err
		}

		res = &MoveResult{
			HistoryID:    historyID,
			EquipmentID:  eq.ID,
			FromSlotID:   eq.CurrentSlotID,
			ToSlotID:     mv.toSlotID,
			StatusBefore: eq.Status,
			StatusAfter:  newStatus,
			Description:  mv.description,
			PerformedBy:  mv.performedBy,
			MovedAt:      at,
		}
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		retryable := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		return nil, apperr.Storage(err, retryable)
	}
	return res, nil
}

func (e *Engine) observe(cmd MoveCommand, res *MoveResult, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	if e.recorder != nil {
		e.recorder.ObserveMove(outcome, elapsed)
	}

	fields := []zap.Field{
		zap.Int64("equipment_id", cmd.EquipmentID),
		zap.Int64p("to_slot_id", cmd.ToSlotID),
		zap.Int64p("performed_by", cmd.PerformedBy),
		zap.Duration("elapsed", elapsed),
	}
	if err == nil {
		e.logger.Info("equipment moved", append(fields,
			zap.Int64("history_id", res.HistoryID),
			zap.Int64p("from_slot_id", res.FromSlotID),
			zap.String("status_before", string(res.StatusBefore)),
			zap.String("status_after", string(res.StatusAfter)),
		)...)
		return
	}

	ae := apperr.As(err)
	fields = append(fields, zap.String("outcome", outcome), zap.String("code", ae.Code))
	if ae.Kind == apperr.KindStorage {
		e.logger.Error("move failed", append(fields, zap.Bool("retryable", ae.Retryable), zap.Error(err))...)
		return
	}
	e.logger.Warn("move rejected", append(fields, zap.String("reason", ae.Message))...)
}

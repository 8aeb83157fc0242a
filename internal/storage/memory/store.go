// Package memory is an in-process placement store. Transactions are
// serialized on a single mutex and staged on copies, so a failed callback
// leaves the committed state untouched.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/models"
	"rdw-inventory-api/internal/placement"
)

// Steps at which a failure can be injected.
const (
	StepLockEquipment = "lock_equipment"
	StepLockSlot      = "lock_slot"
	StepOccupant      = "occupant"
	StepUpdate        = "update"
	StepInsertHistory = "insert_history"
	StepCommit        = "commit"
)

// ErrInjected is returned by steps armed with FailAt.
var ErrInjected = errors.New("memory: injected failure")

type equipmentRow struct {
	slotID    *int64
	status    models.ReadinessStatus
	updatedAt time.Time
}

type Store struct {
	mu        sync.Mutex
	slots     map[int64]bool
	equipment map[int64]equipmentRow
	history   []placement.HistoryEntry
	nextID    int64
	failAt    map[string]error
}

var _ placement.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		slots:     map[int64]bool{},
		equipment: map[int64]equipmentRow{},
		failAt:    map[string]error{},
	}
}

func (s *Store) AddSlot(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.slots[id] = true
	}
}

// AddEquipment seeds an equipment row. It panics if the slot is unknown or
// already taken, since seeds must respect occupancy.
func (s *Store) AddEquipment(id int64, slotID *int64, status models.ReadinessStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotID != nil {
		if !s.slots[*slotID] {
			panic(fmt.Sprintf("memory: unknown slot %d", *slotID))
		}
		if other := occupant(s.equipment, *slotID, id); other != nil {
			panic(fmt.Sprintf("memory: slot %d already holds equipment %d", *slotID, *other))
		}
	}
	s.equipment[id] = equipmentRow{slotID: copyID(slotID), status: status}
}

// FailAt arms a one-shot failure at the named step.
func (s *Store) FailAt(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	s.failAt[step] = err
}

// Equipment returns the committed state of one equipment row.
func (s *Store) Equipment(id int64) (placement.EquipmentState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.equipment[id]
	if !ok {
		return placement.EquipmentState{}, false
	}
	return placement.EquipmentState{ID: id, CurrentSlotID: copyID(row.slotID), Status: row.status}, true
}

// History returns committed history rows in insertion order.
func (s *Store) History() []placement.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]placement.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// Occupancy maps each occupied slot to the equipment ids placed in it.
// A consistent store never reports more than one id per slot.
func (s *Store) Occupancy() map[int64][]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int64][]int64{}
	for id, row := range s.equipment {
		if row.slotID != nil {
			out[*row.slotID] = append(out[*row.slotID], id)
		}
	}
	for _, ids := range out {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return out
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx placement.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, staged: map[int64]equipmentRow{}}
	if err = fn(tx); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = s.fail(StepCommit); err != nil {
		return err
	}

	for id, row := range tx.staged {
		s.equipment[id] = row
	}
	s.history = append(s.history, tx.history...)
	s.nextID += int64(len(tx.history))
	return nil
}

func (s *Store) fail(step string) error {
	if err, ok := s.failAt[step]; ok {
		delete(s.failAt, step)
		return err
	}
	return nil
}

type memTx struct {
	store   *Store
	staged  map[int64]equipmentRow
	history []placement.HistoryEntry
}

func (t *memTx) view() map[int64]equipmentRow {
	v := make(map[int64]equipmentRow, len(t.store.equipment))
	for id, row := range t.store.equipment {
		v[id] = row
	}
	for id, row := range t.staged {
		v[id] = row
	}
	return v
}

func (t *memTx) LockEquipment(ctx context.Context, id int64) (placement.EquipmentState, bool, error) {
	if err := firstErr(ctx.Err(), t.store.fail(StepLockEquipment)); err != nil {
		return placement.EquipmentState{}, false, err
	}
	row, ok := t.view()[id]
	if !ok {
		return placement.EquipmentState{}, false, nil
	}
	return placement.EquipmentState{ID: id, CurrentSlotID: copyID(row.slotID), Status: row.status}, true, nil
}

func (t *memTx) LockSlot(ctx context.Context, slotID int64) (bool, error) {
	if err := firstErr(ctx.Err(), t.store.fail(StepLockSlot)); err != nil {
		return false, err
	}
	return t.store.slots[slotID], nil
}

func (t *memTx) SlotOccupant(ctx context.Context, slotID, excludeID int64) (*int64, error) {
	if err := firstErr(ctx.Err(), t.store.fail(StepOccupant)); err != nil {
		return nil, err
	}
	return occupant(t.view(), slotID, excludeID), nil
}

func (t *memTx) UpdatePlacement(ctx context.Context, id, slotID int64, status models.ReadinessStatus, at time.Time) error {
	if err := firstErr(ctx.Err(), t.store.fail(StepUpdate)); err != nil {
		return err
	}
	view := t.view()
	row, ok := view[id]
	if !ok {
		return fmt.Errorf("memory: equipment %d vanished", id)
	}
	// mirrors the partial unique index on equipment.current_slot_id
	if other := occupant(view, slotID, id); other != nil {
		return apperr.Conflict(apperr.CodeSlotOccupied, "target slot is occupied; choose a different slot")
	}
	row.slotID = &slotID
	row.status = status
	row.updatedAt = at
	t.staged[id] = row
	return nil
}

func (t *memTx) InsertHistory(ctx context.Context, entry placement.HistoryEntry) (int64, error) {
	if err := firstErr(ctx.Err(), t.store.fail(StepInsertHistory)); err != nil {
		return 0, err
	}
	entry.ID = t.store.nextID + int64(len(t.history)) + 1
	entry.FromSlotID = copyID(entry.FromSlotID)
	t.history = append(t.history, entry)
	return entry.ID, nil
}

func occupant(rows map[int64]equipmentRow, slotID, excludeID int64) *int64 {
	for id, row := range rows {
		if id != excludeID && row.slotID != nil && *row.slotID == slotID {
			id := id
			return &id
		}
	}
	return nil
}

func copyID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

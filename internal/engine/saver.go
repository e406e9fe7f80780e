package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/forge-factory/internal/metrics"
	"github.com/talgya/forge-factory/internal/persistence"
)

// ErrNoStorage is returned when a save target is not configured.
var ErrNoStorage = errors.New("save target not configured")

// Saver writes and loads a session's saves to a file and to database slots.
// Either target may be left unset.
type Saver struct {
	Session *Session
	Path    string
	DB      *persistence.DB
	Metrics *metrics.Collector
}

func (sv *Saver) record(target string, err error) {
	if sv.Metrics != nil {
		sv.Metrics.RecordSave(target, err)
	}
}

// SaveFile writes the session to the save file.
func (sv *Saver) SaveFile() error {
	if sv.Path == "" {
		return ErrNoStorage
	}
	text, err := sv.Session.Save()
	if err == nil {
		err = persistence.WriteFile(sv.Path, []byte(text))
	}
	sv.record("file", err)
	if err != nil {
		return fmt.Errorf("save %s: %w", sv.Path, err)
	}
	slog.Info("game saved", "path", sv.Path, "bytes", len(text), "tick", sv.Session.Timeline().Tick())
	return nil
}

// LoadFile restores the session from the save file. A missing file leaves
// the session as it is and reports false.
func (sv *Saver) LoadFile(strict bool) (bool, error) {
	if sv.Path == "" || !persistence.Exists(sv.Path) {
		return false, nil
	}
	raw, err := persistence.ReadFile(sv.Path)
	if err != nil {
		return false, err
	}
	if err := sv.Session.Restore(string(raw), strict); err != nil {
		return false, fmt.Errorf("restore %s: %w", sv.Path, err)
	}
	return true, nil
}

// SaveSlot writes the session to the named database slot.
func (sv *Saver) SaveSlot(name string) (persistence.Slot, error) {
	if sv.DB == nil {
		return persistence.Slot{}, ErrNoStorage
	}
	text, err := sv.Session.Save()
	if err != nil {
		sv.record("slot", err)
		return persistence.Slot{}, err
	}
	st := sv.Session.Status()
	slot, err := sv.DB.SaveSlot(persistence.Slot{
		Name:     name,
		Digest:   st.Catalog,
		Tick:     int64(st.Tick),
		Wallet:   st.Wallet,
		Machines: st.Machines,
	}, text)
	sv.record("slot", err)
	if err == nil {
		err = sv.DB.SaveMeta("last_slot", name)
	}
	return slot, err
}

// LoadSlot restores the session from the named database slot.
func (sv *Saver) LoadSlot(name string, strict bool) error {
	if sv.DB == nil {
		return ErrNoStorage
	}
	text, err := sv.DB.LoadSlot(name)
	if err != nil {
		return err
	}
	return sv.Session.Restore(text, strict)
}

// Autosave saves to the file every interval until ctx is done, then saves
// once more and returns the result of that final save. A non-positive
// interval disables the periodic saves only.
func (sv *Saver) Autosave(ctx context.Context, interval time.Duration) error {
	if sv.Path == "" {
		<-ctx.Done()
		return ErrNoStorage
	}
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-tick:
			if err := sv.SaveFile(); err != nil {
				slog.Error("autosave failed", "error", err)
			}
		case <-ctx.Done():
			err := sv.SaveFile()
			if err != nil {
				slog.Error("final save failed", "error", err)
			}
			return err
		}
	}
}

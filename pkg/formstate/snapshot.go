package formstate

import (
	"time"

	"github.com/randalmurphal/formstate/pkg/formstate/event"
	"github.com/randalmurphal/formstate/pkg/formstate/observability"
	"github.com/randalmurphal/formstate/pkg/formstate/path"
	"github.com/randalmurphal/formstate/pkg/formstate/snapshot"
	"github.com/randalmurphal/formstate/pkg/formstate/state"
	"github.com/randalmurphal/formstate/pkg/formstate/validator"
)

// Snapshot captures the form's data, initial values, flags and
// validation results.
func (f *Form) Snapshot() (*snapshot.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyed {
		return nil, formErr(f.id, "snapshot", ErrDestroyed)
	}

	s := &snapshot.Snapshot{
		Version:    snapshot.Version,
		FormID:     f.id,
		Timestamp:  time.Now(),
		Data:       path.CloneTree(f.data),
		Initial:    path.CloneTree(f.initial),
		States:     f.tracker.States(),
		Fields:     make(map[string]snapshot.Field, f.fields.Len()),
		Validation: f.validationLocked(),
	}
	f.fields.Range(func(name string, fd *Field) bool {
		s.Fields[name] = snapshot.Field{
			Value:        path.Clone(fd.value),
			InitialValue: path.Clone(fd.initialValue),
			States:       fd.tracker.States(),
			Validation:   copyResult(fd.validation),
		}
		return true
	})
	return s, nil
}

func copyResult(r *validator.Result) *validator.Result {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

type fieldRestore struct {
	field  *Field
	states []state.State
	known  bool
	dirty  bool
}

// RestoreSnapshot replaces the form's data, initial values, flags and
// validation results with those in s. Registered fields take their
// values from the restored data; fields s does not mention are marked
// by comparing against the restored initial values. Snapshot fields
// that are not registered are ignored.
//
// Emits "form:change" with type restore.
func (f *Form) RestoreSnapshot(s *snapshot.Snapshot) error {
	if s == nil || (s.FormID != "" && s.FormID != f.id) {
		return formErr(f.id, "restore", ErrSnapshotMismatch)
	}

	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return formErr(f.id, "restore", ErrDestroyed)
	}

	old := path.CloneTree(f.data)
	f.data = path.CloneTree(s.Data)
	f.initial = path.CloneTree(s.Initial)
	f.validation = make(map[string]validator.Result, len(s.Validation))
	for k, v := range s.Validation {
		f.validation[k] = v
	}

	var restores []fieldRestore
	f.fields.Range(func(name string, fd *Field) bool {
		fs, known := s.Fields[name]
		fd.value = path.Clone(path.Lookup(f.data, name))
		fd.generation++
		if known {
			fd.initialValue = path.Clone(fs.InitialValue)
			fd.validation = copyResult(fs.Validation)
		} else {
			fd.initialValue = path.Clone(path.Lookup(f.initial, name))
			fd.validation = nil
			if r, ok := f.validation[name]; ok {
				fd.validation = &r
			}
		}
		restores = append(restores, fieldRestore{
			field:  fd,
			states: fs.States,
			known:  known,
			dirty:  !path.Equal(fd.value, fd.initialValue),
		})
		return true
	})
	formData := path.CloneTree(f.data)
	f.mu.Unlock()

	if err := f.tracker.SetStates(s.States); err != nil {
		return formErr(f.id, "restore", err)
	}
	for _, r := range restores {
		if r.known {
			if err := r.field.tracker.SetStates(r.states); err != nil {
				return fieldErr(r.field.name, "restore", err)
			}
			continue
		}
		r.field.tracker.SetDirty(r.dirty)
		r.field.tracker.ClearValidity()
	}

	event.Publish(f.bus, TopicFormChange, ChangeEvent{
		OldValue: old,
		Value:    path.CloneTree(formData),
		FormData: formData,
		Type:     ChangeTypeRestore,
	})
	return nil
}

// SaveDraft stores a snapshot of the form in store under label.
func (f *Form) SaveDraft(store snapshot.Store, label string) error {
	s, err := f.Snapshot()
	if err != nil {
		return err
	}
	data, err := s.Marshal()
	if err != nil {
		observability.LogDraftError(f.logger, f.id, "marshal", err)
		return formErr(f.id, "save draft", err)
	}
	if err := store.Save(f.id, label, data); err != nil {
		observability.LogDraftError(f.logger, f.id, "save", err)
		return formErr(f.id, "save draft", err)
	}
	observability.LogDraft(f.logger, f.id, label, len(data))
	return nil
}

// LoadDraft restores the snapshot stored in store under label.
// Values decoded from a draft follow JSON typing: numbers come back as
// float64.
func (f *Form) LoadDraft(store snapshot.Store, label string) error {
	data, err := store.Load(f.id, label)
	if err != nil {
		observability.LogDraftError(f.logger, f.id, "load", err)
		return formErr(f.id, "load draft", err)
	}
	s, err := snapshot.Unmarshal(data)
	if err != nil {
		observability.LogDraftError(f.logger, f.id, "unmarshal", err)
		return formErr(f.id, "load draft", err)
	}
	return f.RestoreSnapshot(s)
}

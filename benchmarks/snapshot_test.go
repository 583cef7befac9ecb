package benchmarks

import (
	"os"
	"testing"

	"github.com/randalmurphal/formstate/pkg/formstate"
	"github.com/randalmurphal/formstate/pkg/formstate/snapshot"
)

// BenchmarkSnapshot measures capturing form state.
func BenchmarkSnapshot(b *testing.B) {
	form := mustForm(b, 20)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = form.Snapshot()
	}
}

// BenchmarkSnapshot_Marshal measures snapshot serialization overhead.
func BenchmarkSnapshot_Marshal(b *testing.B) {
	form := mustForm(b, 20)
	s, err := form.Snapshot()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Marshal()
	}
}

// BenchmarkRestoreSnapshot measures restoring captured state.
func BenchmarkRestoreSnapshot(b *testing.B) {
	form := mustForm(b, 20)
	_ = form.SetFieldValue("field0", "x", formstate.SkipValidation())
	s, err := form.Snapshot()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = form.RestoreSnapshot(s)
	}
}

// BenchmarkMemoryStore_SaveDraft measures in-memory draft saves.
func BenchmarkMemoryStore_SaveDraft(b *testing.B) {
	form := mustForm(b, 20)
	store := snapshot.NewMemoryStore()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = form.SaveDraft(store, "autosave")
	}
}

// BenchmarkSQLiteStore_SaveDraft measures SQLite draft saves.
func BenchmarkSQLiteStore_SaveDraft(b *testing.B) {
	form := mustForm(b, 20)
	store, cleanup := createSQLiteStore(b)
	defer cleanup()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = form.SaveDraft(store, "autosave")
	}
}

// BenchmarkSQLiteStore_LoadDraft measures SQLite draft loads.
func BenchmarkSQLiteStore_LoadDraft(b *testing.B) {
	form := mustForm(b, 20)
	store, cleanup := createSQLiteStore(b)
	defer cleanup()
	if err := form.SaveDraft(store, "autosave"); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = form.LoadDraft(store, "autosave")
	}
}

func createSQLiteStore(b *testing.B) (*snapshot.SQLiteStore, func()) {
	b.Helper()
	tmpFile, err := os.CreateTemp("", "bench-*.db")
	if err != nil {
		b.Fatal(err)
	}
	tmpFile.Close()

	store, err := snapshot.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		b.Fatal(err)
	}

	return store, func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}
}

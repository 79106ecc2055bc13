package schedule_test

import (
	"context"
	"sync"
	"time"

	occurrenceRepo "tutorhive/database/repository/occurrence"
	"tutorhive/models"
)

// fakeOccurrenceStore is a minimal in-memory occurrenceRepo.Repository used
// by availability tests; only ListBlocking matters here.
type fakeOccurrenceStore struct {
	mu   sync.Mutex
	occs []models.ClassOccurrence
}

func (f *fakeOccurrenceStore) add(occ models.ClassOccurrence) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.occs = append(f.occs, occ)
}

func (f *fakeOccurrenceStore) Insert(_ context.Context, occ *models.ClassOccurrence) error {
	f.add(*occ)
	return nil
}

func (f *fakeOccurrenceStore) GetByID(_ context.Context, id string) (*models.ClassOccurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.occs {
		if f.occs[i].ID == id {
			occ := f.occs[i]
			return &occ, nil
		}
	}
	return nil, occurrenceRepo.ErrNotFound
}

func (f *fakeOccurrenceStore) UpdateStatus(_ context.Context, id string, from []models.OccurrenceStatus, to models.OccurrenceStatus, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.occs {
		if f.occs[i].ID != id {
			continue
		}
		for _, status := range from {
			if f.occs[i].Status == status {
				f.occs[i].Status = to
				f.occs[i].CancelReason = reason
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (f *fakeOccurrenceStore) ListBlocking(_ context.Context, teacherID string, from, to time.Time) ([]models.ClassOccurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ClassOccurrence
	for _, occ := range f.occs {
		if occ.TeacherID == teacherID && occ.Blocks() && occ.StartUTC.Before(to) && from.Before(occ.EndUTC) {
			out = append(out, occ)
		}
	}
	return out, nil
}

func (f *fakeOccurrenceStore) ListPendingBefore(_ context.Context, cutoff time.Time) ([]models.ClassOccurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ClassOccurrence
	for _, occ := range f.occs {
		if occ.Status == models.OccurrencePending && occ.CreatedAt.Before(cutoff) {
			out = append(out, occ)
		}
	}
	return out, nil
}

func (f *fakeOccurrenceStore) ListByStudent(_ context.Context, studentID string, from, to time.Time) ([]models.ClassOccurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ClassOccurrence
	for _, occ := range f.occs {
		if occ.StudentID == studentID && !occ.StartUTC.Before(from) && occ.StartUTC.Before(to) {
			out = append(out, occ)
		}
	}
	return out, nil
}

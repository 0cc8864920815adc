// Package memory is an in-process Store. Transactions run against a copy of
// the state that replaces the live state only when fn succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/models"
	"docverify/internal/store"
)

type state struct {
	cases    map[string]*models.Case
	issued   map[string]*models.IssuedDocument
	appeals  map[string]*models.Appeal
	registry map[string]*models.RegistryRecord
}

func newState() *state {
	return &state{
		cases:    map[string]*models.Case{},
		issued:   map[string]*models.IssuedDocument{},
		appeals:  map[string]*models.Appeal{},
		registry: map[string]*models.RegistryRecord{},
	}
}

// clone copies the maps. Values are replaced, never mutated in place, so
// sharing pointers between snapshots is safe.
func (s *state) clone() *state {
	n := newState()
	for k, v := range s.cases {
		n.cases[k] = v
	}
	for k, v := range s.issued {
		n.issued[k] = v
	}
	for k, v := range s.appeals {
		n.appeals[k] = v
	}
	for k, v := range s.registry {
		n.registry[k] = v
	}
	return n
}

type Store struct {
	mu    sync.RWMutex
	state *state
	fail  map[string]error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState(), fail: map[string]error{}}
}

// FailOn makes the named write ("InsertIssuedDocument", "UpdateCase", ...)
// return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := &tx{state: s.state.clone(), fail: s.fail}
	if err := fn(work); err != nil {
		return err
	}
	s.state = work.state
	return nil
}

func (s *Store) reader() *tx {
	return &tx{state: s.state, fail: s.fail}
}

func (s *Store) GetCase(ctx context.Context, id string) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetCase(ctx, id)
}

func (s *Store) ListCases(ctx context.Context, f models.CaseFilter, p models.Page) ([]*models.Case, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListCases(ctx, f, p)
}

func (s *Store) CountAhead(ctx context.Context, documentType string, createdAt time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().CountAhead(ctx, documentType, createdAt)
}

func (s *Store) GetIssuedDocument(ctx context.Context, caseID string) (*models.IssuedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetIssuedDocument(ctx, caseID)
}

func (s *Store) GetAppeal(ctx context.Context, id string) (*models.Appeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().GetAppeal(ctx, id)
}

func (s *Store) ListAppeals(ctx context.Context, f models.AppealFilter, p models.Page) ([]*models.Appeal, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().ListAppeals(ctx, f, p)
}

func (s *Store) CountAppealsByStatus(ctx context.Context) (map[models.AppealStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().CountAppealsByStatus(ctx)
}

func (s *Store) FindRecord(ctx context.Context, citizenID, documentType string) (*models.RegistryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader().FindRecord(ctx, citizenID, documentType)
}

type tx struct {
	state *state
	fail  map[string]error
}

func (t *tx) injected(op string) error {
	if err, ok := t.fail[op]; ok {
		return apperrors.NewDatabaseError(op, err)
	}
	return nil
}

func copyCase(c *models.Case) *models.Case {
	cp := *c
	cp.Documents = append([]models.DocumentDescriptor(nil), c.Documents...)
	cp.Verdicts = append([]models.VerdictRecord(nil), c.Verdicts...)
	return &cp
}

func (t *tx) GetCase(_ context.Context, id string) (*models.Case, error) {
	c, ok := t.state.cases[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("case", id)
	}
	return copyCase(c), nil
}

func (t *tx) ListCases(_ context.Context, f models.CaseFilter, p models.Page) ([]*models.Case, int, error) {
	var out []*models.Case
	for _, c := range t.state.cases {
		if f.Kind != "" && c.Kind != f.Kind {
			continue
		}
		if f.CitizenID != "" && c.Citizen.IDNumber != f.CitizenID {
			continue
		}
		if f.DocumentType != "" && c.DocumentType != f.DocumentType {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, copyCase(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, p)
}

func (t *tx) CountAhead(_ context.Context, documentType string, createdAt time.Time) (int, error) {
	n := 0
	for _, c := range t.state.cases {
		if c.DocumentType == documentType && c.Status == models.StatusPending && c.CreatedAt.Before(createdAt) {
			n++
		}
	}
	return n, nil
}

func (t *tx) GetIssuedDocument(_ context.Context, caseID string) (*models.IssuedDocument, error) {
	d, ok := t.state.issued[caseID]
	if !ok {
		return nil, apperrors.NewNotFoundError("issued document", caseID)
	}
	cp := *d
	return &cp, nil
}

func (t *tx) GetAppeal(_ context.Context, id string) (*models.Appeal, error) {
	a, ok := t.state.appeals[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("appeal", id)
	}
	cp := *a
	return &cp, nil
}

func (t *tx) ListAppeals(_ context.Context, f models.AppealFilter, p models.Page) ([]*models.Appeal, int, error) {
	var out []*models.Appeal
	for _, a := range t.state.appeals {
		if f.CitizenID != "" && a.CitizenID != f.CitizenID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, p)
}

func (t *tx) CountAppealsByStatus(context.Context) (map[models.AppealStatus]int, error) {
	counts := map[models.AppealStatus]int{}
	for _, a := range t.state.appeals {
		counts[a.Status]++
	}
	return counts, nil
}

func recordKey(citizenID, documentType string) string {
	return citizenID + "|" + documentType
}

func (t *tx) FindRecord(_ context.Context, citizenID, documentType string) (*models.RegistryRecord, error) {
	if err := t.injected("FindRecord"); err != nil {
		return nil, err
	}
	r, ok := t.state.registry[recordKey(citizenID, documentType)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (t *tx) InsertCase(_ context.Context, c *models.Case) error {
	if err := t.injected("InsertCase"); err != nil {
		return err
	}
	if _, exists := t.state.cases[c.ID]; exists {
		return apperrors.NewDuplicateError("case", c.ID)
	}
	c.Version = 1
	t.state.cases[c.ID] = copyCase(c)
	return nil
}

func (t *tx) UpdateCase(_ context.Context, c *models.Case) error {
	if err := t.injected("UpdateCase"); err != nil {
		return err
	}
	cur, ok := t.state.cases[c.ID]
	if !ok {
		return apperrors.NewNotFoundError("case", c.ID)
	}
	if cur.Version != c.Version {
		return apperrors.NewConflictError(c.ID, c.Version)
	}
	c.Version++
	t.state.cases[c.ID] = copyCase(c)
	return nil
}

func (t *tx) InsertIssuedDocument(_ context.Context, d *models.IssuedDocument) error {
	if err := t.injected("InsertIssuedDocument"); err != nil {
		return err
	}
	cp := *d
	t.state.issued[d.CaseID] = &cp
	return nil
}

func (t *tx) InsertAppeal(_ context.Context, a *models.Appeal) error {
	if err := t.injected("InsertAppeal"); err != nil {
		return err
	}
	if _, exists := t.state.appeals[a.ID]; exists {
		return apperrors.NewDuplicateError("appeal", a.ID)
	}
	a.Version = 1
	cp := *a
	t.state.appeals[a.ID] = &cp
	return nil
}

func (t *tx) UpdateAppeal(_ context.Context, a *models.Appeal) error {
	cur, ok := t.state.appeals[a.ID]
	if !ok {
		return apperrors.NewNotFoundError("appeal", a.ID)
	}
	if cur.Version != a.Version {
		return apperrors.NewConflictError(a.ID, a.Version)
	}
	a.Version++
	cp := *a
	t.state.appeals[a.ID] = &cp
	return nil
}

func (t *tx) DeleteAppeal(_ context.Context, id string) error {
	if _, ok := t.state.appeals[id]; !ok {
		return apperrors.NewNotFoundError("appeal", id)
	}
	delete(t.state.appeals, id)
	return nil
}

func (t *tx) UpsertRecord(_ context.Context, r *models.RegistryRecord) error {
	cp := *r
	t.state.registry[recordKey(r.CitizenID, r.DocumentType)] = &cp
	return nil
}

func paginate[T any](items []T, p models.Page) ([]T, int, error) {
	p = p.Normalize()
	total := len(items)
	start := p.Offset()
	if start >= total {
		return []T{}, total, nil
	}
	end := start + p.PerPage
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/extraction"
	"github.com/trezcool/gradeledger/core/grading"
)

type (
	// Repository persists ledger snapshots. Undo histories are not persisted.
	Repository interface {
		SaveSnapshot(ctx context.Context, key ID, snap Snapshot) error
		// LoadSnapshot returns ErrNotFound when nothing was saved under key.
		LoadSnapshot(ctx context.Context, key ID) (Snapshot, error)
		DeleteSnapshot(ctx context.Context, key ID) error
	}

	// Service hands out sessions by key, serializing access to each one and
	// saving its snapshot after every successful change.
	Service struct {
		repo       Repository
		log        core.Logger
		regulation grading.Regulation

		mu   sync.Mutex
		live map[ID]*liveSession
	}

	liveSession struct {
		mu       sync.Mutex
		sess     *Session
		proposal *Proposal // staged by Propose, consumed by ApplyProposal
		gone     bool      // deleted, or failed to load; no longer in Service.live
		evicted  bool      // dropped by Prune; the snapshot is reloaded on next use
		lastUsed time.Time
	}
)

func NewService(repo Repository, logger core.Logger, reg grading.Regulation) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:       repo,
		log:        logger,
		regulation: reg.OrDefault(),
		live:       make(map[ID]*liveSession),
	}
}

// Create starts an empty ledger and returns its key.
func (svc *Service) Create(ctx context.Context) (ID, error) {
	key := NewID()
	sess := NewSession(svc.regulation)
	if err := svc.repo.SaveSnapshot(ctx, key, sess.Snapshot()); err != nil {
		return "", errors.Wrap(err, "saving new ledger")
	}

	svc.mu.Lock()
	svc.live[key] = &liveSession{sess: sess, lastUsed: time.Now()}
	svc.mu.Unlock()

	svc.log.Info("ledger created", "key", key)
	return key, nil
}

func (svc *Service) acquire(ctx context.Context, key ID) (*liveSession, error) {
	svc.mu.Lock()
	ls, ok := svc.live[key]
	if !ok {
		ls = &liveSession{}
		svc.live[key] = ls
	}
	svc.mu.Unlock()

	ls.mu.Lock()
	if ls.evicted {
		ls.mu.Unlock()
		return svc.acquire(ctx, key)
	}
	ls.lastUsed = time.Now()
	if ls.gone {
		ls.mu.Unlock()
		return nil, ErrNotFound
	}
	if ls.sess == nil {
		snap, err := svc.repo.LoadSnapshot(ctx, key)
		if err != nil {
			ls.gone = true
			ls.mu.Unlock()
			svc.forget(key, ls)
			return nil, err
		}
		ls.sess = FromSnapshot(snap, svc.regulation)
	}
	return ls, nil
}

func (svc *Service) forget(key ID, ls *liveSession) {
	svc.mu.Lock()
	if svc.live[key] == ls {
		delete(svc.live, key)
	}
	svc.mu.Unlock()
}

// Do runs fn with exclusive access to the session and saves the result.
// When fn or the save fails the session is rolled back to where it was.
func (svc *Service) Do(ctx context.Context, key ID, fn func(*Session) error) error {
	ls, err := svc.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()

	cp := ls.sess.checkpoint()
	if err := fn(ls.sess); err != nil {
		ls.sess.rollback(cp)
		return err
	}
	if err := svc.save(ctx, key, ls); err != nil {
		ls.sess.rollback(cp)
		return err
	}
	return nil
}

func (svc *Service) save(ctx context.Context, key ID, ls *liveSession) error {
	if err := svc.repo.SaveSnapshot(ctx, key, ls.sess.Snapshot()); err != nil {
		svc.log.Error(err.Error(), "key", key)
		return errors.Wrap(err, "saving ledger")
	}
	return nil
}

// View runs fn with exclusive access to the session without saving.
func (svc *Service) View(ctx context.Context, key ID, fn func(*Session) error) error {
	ls, err := svc.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()
	return fn(ls.sess)
}

// Propose reconciles an extraction result against the ledger and stages the
// proposal until ApplyProposal or the next Propose.
func (svc *Service) Propose(ctx context.Context, key ID, ex extraction.Result) (Proposal, error) {
	ls, err := svc.acquire(ctx, key)
	if err != nil {
		return Proposal{}, err
	}
	defer ls.mu.Unlock()

	p := Reconcile(ex, ls.sess.Snapshot(), ls.sess.Regulation())
	ls.proposal = &p
	return p, nil
}

// ApplyProposal applies the staged proposal. It reports false when there was
// none or it held no semester.
func (svc *Service) ApplyProposal(ctx context.Context, key ID) (bool, error) {
	ls, err := svc.acquire(ctx, key)
	if err != nil {
		return false, err
	}
	defer ls.mu.Unlock()

	if ls.proposal == nil {
		return false, nil
	}
	p := *ls.proposal
	cp := ls.sess.checkpoint()
	if !ls.sess.ApplyProposal(p) {
		ls.proposal = nil
		return false, nil
	}
	if err := svc.save(ctx, key, ls); err != nil {
		ls.sess.rollback(cp)
		return false, err
	}
	ls.proposal = nil
	return true, nil
}

// Delete drops the ledger and its undo history.
func (svc *Service) Delete(ctx context.Context, key ID) error {
	ls, err := svc.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()

	if err := svc.repo.DeleteSnapshot(ctx, key); err != nil {
		return errors.Wrap(err, "deleting ledger")
	}
	ls.gone = true
	svc.forget(key, ls)
	svc.log.Info("ledger deleted", "key", key)
	return nil
}

// Prune drops sessions unused for longer than idle, along with their undo
// history and staged proposal. Their snapshots stay in the repository.
// It returns how many sessions were dropped.
func (svc *Service) Prune(idle time.Duration) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	n := 0
	for key, ls := range svc.live {
		if !ls.mu.TryLock() {
			continue // in use
		}
		if time.Since(ls.lastUsed) > idle {
			ls.evicted = true
			delete(svc.live, key)
			n++
		}
		ls.mu.Unlock()
	}
	if n > 0 {
		svc.log.Debug("idle ledgers pruned", "count", n)
	}
	return n
}

// PruneEvery calls Prune on every tick until ctx is done.
func (svc *Service) PruneEvery(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Prune(idle)
		}
	}
}

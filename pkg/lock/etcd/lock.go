package etcd

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.etcd.io/etcd/api/v3/mvccpb"
	v3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/marsprotocol/vault-engine/pkg/lock"
)

var (
	ErrManagerClosed      = errors.New("lock manager closed")
	ErrConcurrentAcquire  = errors.New("cannot call Acquire concurrently")
	ErrInvalidLockTimeout = errors.New("invalid lock ttl")
)

// LockManager hands out etcd election backed locks under a root key. All locks
// share a single session lease, so closing the manager releases every lock it
// created.
type LockManager struct {
	log     *logrus.Entry
	client  *v3.Client
	rootKey string
	lockTTL int
	lockVal string

	closeOnce sync.Once
	closeCh   chan struct{}

	sessionMu sync.Mutex
	session   *concurrency.Session
}

// NewLockManager creates a LockManager. lockTTL must be within [1s, 60s]; the
// etcd client silently resets anything else to 60s.
func NewLockManager(client *v3.Client, rootKey string, lockTTL time.Duration, lockValue string) (*LockManager, error) {
	if lockTTL < time.Second || lockTTL > time.Minute {
		return nil, errors.Wrapf(ErrInvalidLockTimeout, "%v must be within [1s, 60s]", lockTTL)
	}

	ttlSeconds := int(lockTTL.Round(time.Second).Seconds())

	session, err := newSession(client, ttlSeconds)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create etcd session")
	}

	lm := &LockManager{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type": "lock/etcd/LockManager",
			"root": rootKey,
		}),
		client:  client,
		rootKey: rootKey,
		lockTTL: ttlSeconds,
		lockVal: lockValue,
		closeCh: make(chan struct{}),
		session: session,
	}

	// A session can reach a terminal state (eg. a leaderless cluster). Keep
	// replacing it until the manager is closed.
	go lm.watchSession()

	return lm, nil
}

func newSession(client *v3.Client, ttlSeconds int) (*concurrency.Session, error) {
	return concurrency.NewSession(
		client,
		concurrency.WithTTL(ttlSeconds),
		concurrency.WithContext(v3.WithRequireLeader(context.Background())),
	)
}

func (lm *LockManager) currentSession() *concurrency.Session {
	lm.sessionMu.Lock()
	defer lm.sessionMu.Unlock()
	return lm.session
}

// Create implements lock.Manager.
func (lm *LockManager) Create(_ context.Context, name string) (lock.DistributedLock, error) {
	key := path.Join(lm.rootKey, name)

	if lm.currentSession() == nil {
		return nil, ErrManagerClosed
	}

	return &Lock{
		log: lm.log.WithFields(logrus.Fields{
			"type": "lock/etcd/Lock",
			"key":  key,
		}),
		lm:  lm,
		key: key,
	}, nil
}

// Close closes the manager. Every held lock created by it is released.
func (lm *LockManager) Close() {
	lm.closeOnce.Do(func() {
		lm.sessionMu.Lock()
		defer lm.sessionMu.Unlock()

		close(lm.closeCh)

		if err := lm.session.Close(); err != nil {
			lm.log.WithError(err).Warn("failure closing etcd session")
		}
		lm.session = nil
	})
}

func (lm *LockManager) watchSession() {
	for {
		session := lm.currentSession()
		if session == nil {
			return
		}

		select {
		case <-lm.closeCh:
			return
		case <-session.Done():
		}

		lm.log.Info("lock session expired, recreating")

		replacement, err := newSession(lm.client, lm.lockTTL)
		if err != nil {
			lm.log.WithError(err).Warn("failure recreating lock session, retrying in 1s")
			time.Sleep(time.Second)
			continue
		}

		lm.sessionMu.Lock()
		if lm.session == nil {
			lm.sessionMu.Unlock()
			_ = replacement.Close()
			return
		}
		lm.session = replacement
		lm.sessionMu.Unlock()
	}
}

// Lock is a lock.DistributedLock backed by an etcd election.
type Lock struct {
	log *logrus.Entry
	lm  *LockManager
	key string

	electionMu sync.Mutex
	election   *concurrency.Election
}

// Acquire implements lock.DistributedLock.
func (l *Lock) Acquire(ctx context.Context) (<-chan struct{}, error) {
	l.electionMu.Lock()
	defer l.electionMu.Unlock()

	if l.election != nil {
		return nil, ErrConcurrentAcquire
	}

	session := l.lm.currentSession()
	if session == nil {
		return nil, ErrManagerClosed
	}

	campaignCtx, cancelCampaign := context.WithCancel(ctx)
	election := concurrency.NewElection(session, l.key)
	if err := election.Campaign(campaignCtx, l.lm.lockVal); err != nil {
		cancelCampaign()
		return nil, errors.Wrap(err, "failed to campaign for lock")
	}

	l.log.Debug("lock acquired")
	l.election = election

	watchCh := session.Client().Watch(
		v3.WithRequireLeader(campaignCtx),
		election.Key(),
		v3.WithRev(election.Rev()),
	)

	lostCh := make(chan struct{})
	go l.watch(ctx, session, election, watchCh, lostCh, cancelCampaign)

	return lostCh, nil
}

func (l *Lock) watch(
	ctx context.Context,
	session *concurrency.Session,
	election *concurrency.Election,
	watchCh v3.WatchChan,
	lostCh chan struct{},
	cancel context.CancelFunc,
) {
	defer cancel()
	defer l.release(ctx, election)

	// Signal loss before resigning, since Resign blocks while the cluster
	// has no leader.
	defer close(lostCh)

	for {
		select {
		case <-session.Done():
			l.log.Warn("session ended, releasing lock")
			return
		case resp, ok := <-watchCh:
			if !ok {
				return
			}
			if err := resp.Err(); err != nil {
				l.log.WithError(err).Warn("failure watching lock key")
				return
			}

			for _, event := range resp.Events {
				switch event.Type {
				case mvccpb.PUT:
					if event.Kv.CreateRevision != election.Rev() {
						l.log.Warn("lock key create revision changed, releasing lock")
						return
					}
				case mvccpb.DELETE:
					l.log.Trace("lock key removed")
					return
				}
			}
		}
	}
}

func (l *Lock) release(ctx context.Context, election *concurrency.Election) {
	l.electionMu.Lock()
	defer l.electionMu.Unlock()

	if l.election != election {
		return
	}

	if err := election.Resign(ctx); err != nil {
		l.log.WithError(err).Warn("failure resigning lock during cleanup")
	}
	l.election = nil
}

// Unlock implements lock.DistributedLock
func (l *Lock) Unlock(ctx context.Context) error {
	l.electionMu.Lock()
	defer l.electionMu.Unlock()

	if l.election == nil {
		return nil
	}

	err := l.election.Resign(ctx)
	l.election = nil
	return err
}

// IsLocked implements lock.DistributedLock
func (l *Lock) IsLocked() bool {
	l.electionMu.Lock()
	defer l.electionMu.Unlock()

	return l.election != nil && l.election.Key() != ""
}

// Package sweep runs one pass over the inbox: list unread messages,
// normalize each, and persist the results.
package sweep

import (
	"context"

	"github.com/emersion/go-imap/v2"
	"go.uber.org/zap"

	"github.com/manogna-24/Email-processor/internal/mail"
	"github.com/manogna-24/Email-processor/internal/model"
)

// MailSession is the subset of an open mail session the sweep drives.
type MailSession interface {
	SelectInbox() error
	SearchUnseen() ([]imap.UID, error)
	Fetch(uid imap.UID) ([]byte, error)
	Close() error
}

// SessionOpener opens an authenticated mail session.
type SessionOpener interface {
	Open(ctx context.Context) (MailSession, error)
}

// OpenerFunc adapts a function to the SessionOpener interface.
type OpenerFunc func(ctx context.Context) (MailSession, error)

func (f OpenerFunc) Open(ctx context.Context) (MailSession, error) {
	return f(ctx)
}

// Normalizer converts one raw message into a normalization result.
type Normalizer interface {
	Normalize(raw []byte) mail.Result
}

// RecordStore persists canonical mail records.
type RecordStore interface {
	Save(ctx context.Context, record *model.Record) error
}

// Sweeper orchestrates one synchronous inbox sweep.
type Sweeper struct {
	opener     SessionOpener
	normalizer Normalizer
	store      RecordStore
	log        *zap.Logger
}

// New creates a Sweeper from its collaborators.
func New(
	opener SessionOpener,
	normalizer Normalizer,
	store RecordStore,
	log *zap.Logger,
) *Sweeper {
	return &Sweeper{
		opener:     opener,
		normalizer: normalizer,
		store:      store,
		log:        log,
	}
}

// Run performs one sweep: open a session, select INBOX, search for
// unread messages, then fetch, normalize, and persist each in turn.
// The session is closed exactly once on every exit path. Protocol
// failures on select, search, or fetch end or skip quietly; a
// persistence failure aborts the remainder of the sweep and is
// returned to the caller.
func (s *Sweeper) Run(ctx context.Context) error {
	session, err := s.opener.Open(ctx)
	if err != nil {
		s.log.Error("connecting to email server", zap.Error(err))
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.log.Warn("closing mail session", zap.Error(cerr))
		}
	}()

	if err := session.SelectInbox(); err != nil {
		s.log.Warn("failed to select inbox", zap.Error(err))
		return nil
	}

	uids, err := session.SearchUnseen()
	if err != nil {
		s.log.Warn("failed to search for unread messages", zap.Error(err))
		return nil
	}
	if len(uids) == 0 {
		s.log.Info("no unread messages in the inbox")
		return nil
	}

	for _, uid := range uids {
		raw, err := session.Fetch(uid)
		if err != nil {
			s.log.Warn("failed to fetch message",
				zap.Uint32("uid", uint32(uid)),
				zap.Error(err),
			)
			continue
		}

		result := s.normalizer.Normalize(raw)
		if result.Skipped() {
			// Already logged by the normalizer.
			continue
		}

		if err := s.store.Save(ctx, result.Record); err != nil {
			s.log.Error("aborting sweep on store failure", zap.Error(err))
			return err
		}

		s.log.Info("processed message",
			zap.String("sender", result.Record.Sender),
			zap.String("subject", result.Record.Subject),
		)
	}

	return nil
}

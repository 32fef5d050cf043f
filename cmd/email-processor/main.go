// Command email-processor runs one sweep over the configured IMAP
// inbox, persisting a normalized record per unread message. It reads
// config.ini from the working directory and takes no flags. Failures
// surface in the logs only; the process always exits normally.
package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/manogna-24/Email-processor/internal/config"
	"github.com/manogna-24/Email-processor/internal/logger"
	"github.com/manogna-24/Email-processor/internal/mail"
	"github.com/manogna-24/Email-processor/internal/store"
	"github.com/manogna-24/Email-processor/internal/sweep"
)

const (
	configFile = "config.ini"
	logFile    = "email_processor.log"
)

func main() {
	log := logger.New(logFile)
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Error("critical error in main execution", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	ctx := context.Background()

	recordStore, err := store.Connect(
		ctx,
		cfg.Database.MongoURI,
		cfg.Database.Database,
		cfg.Database.Collection,
		log,
	)
	if err != nil {
		return err
	}

	client := mail.NewClient(
		cfg.Email.IMAPServer,
		cfg.Email.Email,
		cfg.Email.Password,
		mail.DefaultRetryPolicy(),
		log,
	)

	opener := sweep.OpenerFunc(
		func(ctx context.Context) (sweep.MailSession, error) {
			session, err := client.Open(ctx)
			if err != nil {
				return nil, err
			}
			return session, nil
		},
	)

	sweeper := sweep.New(opener, mail.NewNormalizer(log), recordStore, log)

	if err := sweeper.Run(ctx); err != nil {
		// Run has already logged the failure in context; the sweep
		// ends but the process still exits normally.
		log.Error("sweep did not complete", zap.Error(err))
	}

	return nil
}

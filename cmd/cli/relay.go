package main

import (
	"context"
	"fmt"
	"time"

	"github.com/akeren/acs-site/config"
	"github.com/akeren/acs-site/domain/contact"
	"github.com/akeren/acs-site/pkg/memcache"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Inspect the outbound email relay",
	}

	var timeout time.Duration
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Connect and authenticate against the relay without sending mail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mailCfg, service, cleanup, err := newContactService(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := service.VerifyRelay(ctx); err != nil {
				if missing := mailCfg.MissingVariables(); len(missing) > 0 {
					return fmt.Errorf("%w (missing: %v)", err, missing)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Relay %s:%d accepted the configured credentials\n", mailCfg.SMTPHost, mailCfg.SMTPPort)
			return nil
		},
	}
	verifyCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "connection timeout")

	cmd.AddCommand(verifyCmd)
	return cmd
}

// newContactService builds the contact service the server would run, minus
// the HTTP surface. db may be nil when no dispatch records are needed.
func newContactService(db *gorm.DB) (*config.MailConfig, contact.ContactService, func(), error) {
	mailCfg, relay, err := config.SetupMail(logger)
	if err != nil {
		return nil, nil, nil, err
	}

	service, err := contact.NewContactService(
		logger,
		relay,
		contact.NewDispatchRepository(db),
		memcache.New(),
		contact.Settings{
			Sender:           mailCfg.Sender(),
			Recipients:       mailCfg.To,
			SubjectPrefix:    mailCfg.SubjectPrefix,
			VerifyBeforeSend: mailCfg.VerifyBeforeSend,
			SendTimeout:      mailCfg.SendTimeout,
			IdempotencyTTL:   mailCfg.IdempotencyTTL,
			Configured:       mailCfg.IsConfigured(),
		},
		nil,
	)
	if err != nil {
		_ = relay.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := relay.Close(); err != nil {
			logger.Warn("Failed to close email relay", "error", err)
		}
	}
	return mailCfg, service, cleanup, nil
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mikey/llm-task-extractor/internal/adapters/mailbox"
	"github.com/mikey/llm-task-extractor/internal/config"
	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/di"
	"github.com/mikey/llm-task-extractor/internal/factory"
	"github.com/mikey/llm-task-extractor/internal/senderfilter"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	container, err := di.BuildCLIContainer(ctx, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(
		logger *zap.Logger,
		cfg *config.Config,
		service *core.TaskService,
		mailboxes *factory.MailboxFactory,
		filter *senderfilter.Checker,
		generator core.TextGenerator,
	) error {
		defer logger.Sync()
		defer func() {
			if closer, ok := generator.(interface{ Close() error }); ok {
				if err := closer.Close(); err != nil {
					logger.Error("Failed to close text model", zap.Error(err))
				}
			}
		}()
		return run(ctx, logger, cfg, flags, service, mailboxes, filter)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	flags *di.CLIFlags,
	service *core.TaskService,
	mailboxes *factory.MailboxFactory,
	filter *senderfilter.Checker,
) error {
	loc, err := cfg.GetLocation()
	if err != nil {
		return err
	}
	ref, err := flags.Reference(loc)
	if err != nil {
		return err
	}

	emails, err := readEmails(ctx, logger, flags, mailboxes, filter)
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		logger.Warn("No emails to process")
	}

	startTime := time.Now()
	tasks := service.AssembleBatch(ctx, emails, ref)
	logger.Info("Processed emails",
		zap.Int("count", len(tasks)),
		zap.Time("reference", ref),
		zap.Duration("duration", time.Since(startTime)))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tasks)
}

// readEmails loads the input selected by -dir, -file or stdin
func readEmails(
	ctx context.Context,
	logger *zap.Logger,
	flags *di.CLIFlags,
	mailboxes *factory.MailboxFactory,
	filter *senderfilter.Checker,
) ([]core.RawEmail, error) {
	switch {
	case flags.InputDir != "":
		logger.Info("Reading emails from directory", zap.String("dir", flags.InputDir))
		return mailboxes.CreateDirMailbox(flags.InputDir, filter).ListRecent(ctx, flags.Limit)
	case flags.InputFile != "":
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
		email, err := mailbox.ReadFile(flags.InputFile)
		if err != nil {
			return nil, err
		}
		return []core.RawEmail{email}, nil
	default:
		logger.Info("Reading email from stdin")
		email, err := mailbox.ParseMessage(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email: %w", err)
		}
		return []core.RawEmail{email}, nil
	}
}

// Package intake accepts emails pushed over SMTP and turns each into a task.
package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/llm-task-extractor/internal/adapters/mailbox"
	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/ports"
	"github.com/mikey/llm-task-extractor/internal/senderfilter"
	"go.uber.org/zap"
)

// Owner is the task store key intake tasks are appended under
const Owner = core.SMTPIntakeOwner

// Task headers added to forwarded messages
const (
	HeaderPriority = "X-Task-Priority"
	HeaderDeadline = "X-Task-Deadline"
	HeaderType     = "X-Task-Event-Type"
)

// Assembler turns one email into a task
type Assembler interface {
	Assemble(ctx context.Context, email core.RawEmail, reference time.Time) core.Task
}

// Config holds the listener settings
type Config struct {
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
	ForwardAddress  string

	// Location is the zone reference instants are taken in; defaults to time.Local
	Location *time.Location

	// ProcessTimeout bounds the work done for one message
	ProcessTimeout time.Duration
}

// SMTPIntake is an SMTP listener feeding the task pipeline
type SMTPIntake struct {
	cfg      Config
	service  Assembler
	store    core.TaskStore
	filter   *senderfilter.Checker
	logger   *zap.Logger
	now      func() time.Time
	server   *smtp.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewSMTPIntake creates a new intake listener
func NewSMTPIntake(
	cfg Config,
	service Assembler,
	store core.TaskStore,
	filter *senderfilter.Checker,
	logger *zap.Logger,
) *SMTPIntake {
	if cfg.Domain == "" {
		cfg.Domain = "localhost"
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 10 * 1024 * 1024
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 2 * time.Minute
	}
	return &SMTPIntake{
		cfg:     cfg,
		service: service,
		store:   store,
		filter:  filter,
		logger:  logger,
		now:     time.Now,
	}
}

// Name identifies the front end
func (f *SMTPIntake) Name() string {
	return "smtp-intake"
}

// Start listens on the configured address and serves in the background
func (f *SMTPIntake) Start() error {
	f.server = smtp.NewServer(&smtpBackend{intake: f})
	f.server.Addr = f.cfg.ListenAddress
	f.server.Domain = f.cfg.Domain
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = f.cfg.MaxMessageBytes
	f.server.MaxRecipients = 50

	l, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}
	f.listener = l

	f.logger.Info("SMTP intake starting", zap.String("address", l.Addr().String()))

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := f.server.Serve(l); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (f *SMTPIntake) Addr() string {
	if f.listener == nil {
		return ""
	}
	return f.listener.Addr().String()
}

// Stop closes the listener and waits for open sessions until ctx is done
func (f *SMTPIntake) Stop(ctx context.Context) error {
	if f.server == nil {
		return nil
	}
	err := f.server.Shutdown(ctx)
	f.wg.Wait()
	if errors.Is(err, smtp.ErrServerClosed) {
		return nil
	}
	return err
}

// process assembles and stores the task for one raw message
func (f *SMTPIntake) process(sender string, recipients []string, raw []byte) error {
	email, err := mailbox.ParseMessage(bytes.NewReader(raw))
	if err != nil {
		f.logger.Error("Failed to parse email message", zap.Error(err), zap.String("sender", sender))
		return &smtp.SMTPError{Code: 554, EnhancedCode: smtp.EnhancedCode{5, 6, 0}, Message: "Malformed message"}
	}
	if email.From == "" {
		email.From = sender
	}

	if f.filter.IsIgnored(email.From) {
		f.logger.Debug("Accepted message from ignored sender", zap.String("from", email.From))
		return f.forward(sender, recipients, raw, nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.ProcessTimeout)
	defer cancel()

	task := f.service.Assemble(ctx, email, f.now().In(f.cfg.Location))
	f.store.Append(Owner, task)

	f.logger.Info("Processed email",
		zap.String("from", email.From),
		zap.String("subject", email.Subject),
		zap.String("priority", string(task.Priority)),
		zap.Time("deadline", task.Deadline))

	return f.forward(sender, recipients, raw, &task)
}

// forward relays the message to the next hop, prefixed with task headers
func (f *SMTPIntake) forward(sender string, recipients []string, raw []byte, task *core.Task) error {
	if f.cfg.ForwardAddress == "" {
		return nil
	}

	var annotated bytes.Buffer
	if task != nil {
		fmt.Fprintf(&annotated, "%s: %s\r\n", HeaderPriority, task.Priority)
		fmt.Fprintf(&annotated, "%s: %s\r\n", HeaderDeadline, task.Deadline.Format(time.RFC3339))
		fmt.Fprintf(&annotated, "%s: %s\r\n", HeaderType, task.EventType)
	}
	annotated.Write(raw)

	if err := f.relay(sender, recipients, annotated.Bytes()); err != nil {
		f.logger.Error("Failed to forward email", zap.Error(err), zap.String("sender", sender))
		return &smtp.SMTPError{Code: 451, EnhancedCode: smtp.EnhancedCode{4, 4, 1}, Message: "Forwarding failed, try again later"}
	}
	return nil
}

func (f *SMTPIntake) relay(sender string, recipients []string, data []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", f.cfg.ForwardAddress, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", f.cfg.ForwardAddress, err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return errors.New("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	intake *SMTPIntake
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{intake: b.intake}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	intake     *SMTPIntake
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message and hands it to the pipeline
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.intake.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	return s.intake.process(s.sender, s.recipients, raw)
}

// Logout ends the session
func (s *smtpSession) Logout() error {
	return nil
}

var _ ports.FrontEnd = (*SMTPIntake)(nil)

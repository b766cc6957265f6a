package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	rsmqerrors "github.com/replicate/rsmq/errors"
	"github.com/replicate/rsmq/kv"
	"github.com/replicate/rsmq/logging"
	"github.com/replicate/rsmq/queue"
	"github.com/replicate/rsmq/telemetry"
	"github.com/replicate/rsmq/version"
)

var logger = logging.New("rsmq")

// declareAttempts bounds how often a lost creation race is retried.
const declareAttempts = 3

func main() {
	rsmqerrors.Init()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	shutdown(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := telemetry.Shutdown(ctx); err != nil {
		logger.Sugar().Warnf("failed to shut down telemetry: %v", err)
	}
	rsmqerrors.Flush(2 * time.Second)
	_ = logging.Sync()
}

type options struct {
	redisURL  string
	namespace string
	vt        int
	delay     int
	maxSize   int
	realtime  bool
	noCreate  bool
	caFile    string
	verbose   bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "rsmq",
		Short:         "Declare RSMQ queues and send messages to them",
		Version:       version.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logging.SetLevel(zapcore.DebugLevel)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.redisURL, "redis-url", envOr("REDIS_URL", "redis://localhost:6379"), "Redis URL")
	flags.StringVar(&opts.namespace, "namespace", envOr("RSMQ_NAMESPACE", queue.DefaultNamespace), "Queue namespace")
	flags.IntVar(&opts.vt, "vt", queue.DefaultVisibilityTimeout, "Visibility timeout in seconds for a new queue")
	flags.IntVar(&opts.delay, "delay", 0, "Default delay in seconds for a new queue")
	flags.IntVar(&opts.maxSize, "maxsize", queue.DefaultMaxSize, "Maximum message size in bytes for a new queue (-1 for unlimited)")
	flags.BoolVar(&opts.realtime, "realtime", true, "Publish the queue length after each send")
	flags.BoolVar(&opts.noCreate, "no-create", false, "Fail instead of creating a queue that does not exist")
	flags.StringVar(&opts.caFile, "redis-ca-file", os.Getenv("REDIS_CA_FILE"), "CA certificate used to verify a rediss:// server")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newDeclareCommand(opts), newSendCommand(opts))

	return rootCmd
}

func newDeclareCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "declare <queue>",
		Short: "Create a queue if needed and print its attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			cfg := q.Config()
			fmt.Fprintf(cmd.OutOrStdout(), "queue:    %s\n", cfg.QualifiedName())
			fmt.Fprintf(cmd.OutOrStdout(), "vt:       %d\n", cfg.VisibilityTimeout())
			fmt.Fprintf(cmd.OutOrStdout(), "delay:    %d\n", cfg.Delay())
			fmt.Fprintf(cmd.OutOrStdout(), "maxsize:  %d\n", cfg.MaxSize())
			fmt.Fprintf(cmd.OutOrStdout(), "realtime: %t\n", cfg.Realtime())
			return nil
		},
	}
}

func newSendCommand(opts *options) *cobra.Command {
	var messageDelay int

	cmd := &cobra.Command{
		Use:   "send <queue> <message>",
		Short: "Send a message and print its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			m := queue.NewMessage(args[1])
			if cmd.Flags().Changed("message-delay") {
				if err := m.SetDelay(messageDelay); err != nil {
					return err
				}
			}

			id, err := q.Send(cmd.Context(), m)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().IntVar(&messageDelay, "message-delay", 0, "Delay in seconds for this message, overriding the queue's delay")

	return cmd
}

func (o *options) open(ctx context.Context, name string) (*queue.Queue, error) {
	cfg, err := queue.NewConfig(name,
		queue.WithNamespace(o.namespace),
		queue.WithVisibilityTimeout(o.vt),
		queue.WithDelay(o.delay),
		queue.WithMaxSize(o.maxSize),
		queue.WithRealtime(o.realtime),
	)
	if err != nil {
		return nil, err
	}

	var clientOpts []kv.ClientOption
	if o.caFile != "" {
		clientOpts = append(clientOpts, kv.WithAutoTLS(o.caFile))
	}

	rdb, err := kv.New(ctx, "rsmq", o.redisURL, clientOpts...)
	if err != nil {
		return nil, err
	}
	context.AfterFunc(ctx, func() { _ = rdb.Close() })

	return declare(ctx, cfg, kv.NewStore(rdb), !o.noCreate)
}

// declare reconciles cfg with Redis. Losing a creation race to another
// client means the queue now exists, so it is read again and adopted.
func declare(ctx context.Context, cfg queue.Config, store queue.Store, allowCreate bool) (*queue.Queue, error) {
	var err error
	for range declareAttempts {
		var q *queue.Queue
		q, err = queue.New(ctx, cfg, store, queue.WithAllowCreate(allowCreate))
		if !errors.Is(err, queue.ErrQueueExists) {
			return q, err
		}
		logger.Sugar().Debugw("queue was created concurrently, retrying", "queue", cfg.QualifiedName())
	}
	return nil, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/repwatch/internal/config"
	"github.com/ayusman/repwatch/internal/hook"
	"github.com/ayusman/repwatch/internal/metrics"
	"github.com/ayusman/repwatch/internal/pose"
	"github.com/ayusman/repwatch/internal/repetition"
	"github.com/ayusman/repwatch/internal/server"
	"github.com/ayusman/repwatch/internal/session"
	"github.com/ayusman/repwatch/internal/sink"
)

type runOptions struct {
	*rootOptions

	source        string
	windowSize    int
	threshold     float64
	mode          string
	minVisibility float64
	maxSamples    int
	hooksDir      string
	redisAddr     string
	httpAddr      string
	serve         bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a detection session",
		Long: `Run a detection session on a landmark source and report every
repetitive movement. The source is one of:

  stdin                JSON frames on standard input (default)
  file:<path>          a recorded JSON-lines file
  exec:<command line>  frames printed by an external process
  pose-service         the bundled MediaPipe pose service
  ws://... wss://...   a WebSocket endpoint`,
		Example: `  repwatch run --source file:session.jsonl --window 20 --threshold 0.02
  repwatch run --source pose-service --http :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.source, "source", "s", config.DefaultSource, "landmark source")
	f.IntVarP(&opts.windowSize, "window", "w", repetition.DefaultWindowSize, "samples in the rolling window")
	f.Float64VarP(&opts.threshold, "threshold", "t", repetition.DefaultThreshold, "standard deviation above which motion is flagged")
	f.StringVar(&opts.mode, "mode", string(repetition.CountPerSample), `what the counter counts: "sample" or "episode"`)
	f.Float64Var(&opts.minVisibility, "min-visibility", 0, "minimum wrist visibility for a frame to count")
	f.IntVar(&opts.maxSamples, "max-samples", 0, "stop after this many samples (0 = no limit)")
	f.StringVar(&opts.hooksDir, "hooks-dir", "", "directory of hook executables")
	f.StringVar(&opts.redisAddr, "redis", "", "publish detections to this Redis server")
	f.StringVar(&opts.httpAddr, "http", "", "serve the API, live events and metrics on this address")
	f.BoolVar(&opts.serve, "serve", false, "serve HTTP on the configured address")

	return cmd
}

func (o *runOptions) config(cmd *cobra.Command) (config.Config, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return config.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("source") {
		cfg.Source.Spec = o.source
	}
	if f.Changed("window") {
		cfg.Detector.WindowSize = o.windowSize
	}
	if f.Changed("threshold") {
		cfg.Detector.Threshold = o.threshold
	}
	if f.Changed("mode") {
		cfg.Detector.Mode = repetition.CountMode(o.mode)
	}
	if f.Changed("min-visibility") {
		cfg.Source.MinVisibility = o.minVisibility
	}
	if f.Changed("max-samples") {
		cfg.MaxSamples = o.maxSamples
	}
	if f.Changed("hooks-dir") {
		cfg.Hooks.Dir = o.hooksDir
	}
	if f.Changed("redis") {
		cfg.Redis.Addr = o.redisAddr
	}
	if f.Changed("http") {
		cfg.HTTP.Addr = o.httpAddr
		o.serve = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *runOptions) run(cmd *cobra.Command) error {
	cfg, err := o.config(cmd)
	if err != nil {
		return err
	}

	logger, err := o.logger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sinks := []sink.Sink{sink.NewLogSink(logger)}

	hooks := hook.NewManager(cfg.Hooks.Dir)
	if err := hooks.Discover(); err != nil {
		logger.Warn("Failed to discover hooks", zap.String("dir", cfg.Hooks.Dir), zap.Error(err))
	}
	if found := hooks.List(); len(found) > 0 {
		logger.Info("Loaded hooks", zap.Int("count", len(found)), zap.String("dir", cfg.Hooks.Dir))
		hs := hook.NewSink(hooks, hook.NewExecutor(cfg.Hooks.TimeoutMs), logger)
		defer hs.Close()
		sinks = append(sinks, hs)
	}

	if cfg.Redis.Addr != "" {
		rs, err := newRedisSink(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rs.Close()
		sinks = append(sinks, rs)
	}

	var (
		broadcaster *server.Broadcaster
		serverErr   chan error
	)
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	if o.serve {
		broadcaster = server.NewBroadcaster(logger)
		sinks = append(sinks, broadcaster)

		srv := server.New(server.Config{
			StaticDir:   cfg.HTTP.StaticDir,
			Store:       st,
			Broadcaster: broadcaster,
			Gatherer:    reg,
			Logger:      logger,
		})
		serverErr = make(chan error, 1)
		go func() {
			serverErr <- srv.ListenAndServe(serverCtx, cfg.HTTP.Addr)
		}()
	}

	src, err := pose.Open(ctx, cfg.Source.Spec)
	if err != nil {
		return err
	}

	runner, err := session.New(session.Config{
		Detector:        cfg.Detector,
		SourceName:      cfg.Source.Spec,
		MinVisibility:   cfg.Source.MinVisibility,
		MaxSamples:      cfg.MaxSamples,
		MaxSourceErrors: cfg.Source.MaxErrors,
		Store:           st,
		Sink:            sink.Multi(sinks...),
		Metrics:         m,
		Logger:          logger,
	}, src)
	if err != nil {
		src.Close()
		return err
	}

	sum, runErr := runner.Run(ctx)

	fmt.Fprintf(o.out, "Session %s\n", sum.SessionID)
	fmt.Fprintf(o.out, "Total repetitive motion instances detected: %d\n", sum.Events)

	if serverErr != nil {
		stopServer()
		if err := <-serverErr; err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("http server: %w", err))
		}
	}
	return runErr
}

func newRedisSink(ctx context.Context, cfg config.RedisConfig) (*sink.RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	rs := sink.NewRedisSink(client, cfg.Channel)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rs.Check(pingCtx); err != nil {
		rs.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return rs, nil
}

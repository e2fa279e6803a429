package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Sternrassler/comics-character-sync/internal/config"
	"github.com/Sternrassler/comics-character-sync/pkg/cache"
	"github.com/Sternrassler/comics-character-sync/pkg/catalog"
	"github.com/Sternrassler/comics-character-sync/pkg/dataset"
	"github.com/Sternrassler/comics-character-sync/pkg/job"
	"github.com/Sternrassler/comics-character-sync/pkg/logging"
	"github.com/Sternrassler/comics-character-sync/pkg/metrics"
	"github.com/Sternrassler/comics-character-sync/pkg/pagination"
	"github.com/Sternrassler/comics-character-sync/pkg/ratelimit"
	"github.com/Sternrassler/comics-character-sync/pkg/secrets"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:          "character-sync",
		Short:        "Sync catalog characters into the S3 dataset",
		Long:         "Fetch every character from the catalog API and append the ones missing from the dataset. Runs as a Lambda handler unless --local is given.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(logging.DefaultConfig())

			cfg, err := config.Load()
			if err != nil {
				log.Error().Err(err).Msg("Invalid configuration")
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logging.Setup(cfg.Logging())

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				log.Error().Err(err).Msg("Failed to initialise")
				return err
			}
			defer a.Close()

			if local {
				return runLocal(ctx, a, cmd.OutOrStdout())
			}

			lambda.Start(a.handle)
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "run one sync and print the response instead of starting the Lambda runtime")

	return cmd
}

// runLocal runs the handler once and prints its response as JSON.
func runLocal(ctx context.Context, a *app, out io.Writer) error {
	resp, err := a.handle(ctx, nil)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// app holds the clients that survive between invocations of a warm Lambda.
type app struct {
	job         *job.Job
	redis       *redis.Client
	pushgateway string
	logger      zerolog.Logger
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	a := &app{
		pushgateway: cfg.PushgatewayURL,
		logger:      logging.NewLogger("character-sync"),
	}

	var pageCache *cache.Manager
	var quota *ratelimit.Tracker
	if cfg.RedisURL != "" {
		a.redis, err = connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		pageCache = cache.NewManager(a.redis, cache.DefaultTTL)
		quota = ratelimit.NewTracker(a.redis, cfg.DailyCallLimit, logging.NewLogger("quota"))
		a.logger.Info().Int("daily_call_limit", cfg.DailyCallLimit).Msg("Page cache and quota enabled")
	}

	store := dataset.NewStore(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.BucketPrefix, logging.NewLogger("dataset"))
	provider := secrets.NewProvider(secretsmanager.NewFromConfig(awsCfg), logging.NewLogger("secrets"))

	a.job = job.New(provider, store, catalogFactory(cfg, pageCache, quota), job.Config{
		SecretName: cfg.SecretName,
		Pagination: cfg.Pagination(),
	}, a.logger)

	return a, nil
}

// catalogFactory returns a job.FetcherFactory building one catalog client per run.
func catalogFactory(cfg config.Config, pageCache *cache.Manager, quota *ratelimit.Tracker) job.FetcherFactory {
	return func(creds catalog.Credentials) (pagination.PageFetcher, error) {
		cc := catalog.DefaultConfig()
		cc.BaseURL = cfg.CatalogBaseURL
		cc.Timeout = cfg.HTTPTimeout
		cc.Cache = pageCache
		cc.Quota = quota
		return catalog.New(creds, cc)
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// handle is the Lambda handler. The event payload is ignored.
func (a *app) handle(ctx context.Context, _ json.RawMessage) (*job.Response, error) {
	logger := a.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logging.ForInvocation(logger, lc.AwsRequestID)
	}
	logger.Info().Msg("Sync started")
	ctx = logger.WithContext(ctx)

	resp, err := a.job.Run(ctx)

	if a.pushgateway != "" {
		if perr := metrics.Push(ctx, a.pushgateway, metrics.JobName, metrics.Gatherer); perr != nil {
			logger.Warn().Err(perr).Msg("Failed to push metrics")
		}
	}

	if err != nil {
		logger.Error().Err(err).Msg("Sync failed")
		return nil, err
	}

	logger.Info().
		Int("fetched", resp.Fetched).
		Int("appended", resp.Appended).
		Msg(resp.Message)

	return resp, nil
}

// Close releases the Redis connection if one was opened.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
		a.redis = nil
	}
}

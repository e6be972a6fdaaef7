package agentkit

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/seobando/agentkit/artifact"
	s3store "github.com/seobando/agentkit/artifact/s3"
	"github.com/seobando/agentkit/config"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/memory"
	badgerstore "github.com/seobando/agentkit/memory/badger"
	"github.com/seobando/agentkit/middleware"
	"github.com/seobando/agentkit/model"
	anthropicmodel "github.com/seobando/agentkit/model/anthropic"
	"github.com/seobando/agentkit/model/gemini"
	openaimodel "github.com/seobando/agentkit/model/openai"
	"github.com/seobando/agentkit/session"
	"github.com/seobando/agentkit/session/sqlite"
)

// Stores bundles the backends selected by the storage section of a config.
type Stores struct {
	Sessions  core.SessionStore
	Artifacts core.ArtifactStore
	Memory    core.MemoryStore

	closers []func() error
}

// Close releases every backend that holds resources.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// OpenStores opens the session, artifact and memory backends named in cfg.
// On error every backend opened so far is closed.
func OpenStores(cfg config.Config, logger logging.Logger) (_ *Stores, err error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	stores := &Stores{}
	defer func() {
		if err != nil {
			_ = stores.Close()
		}
	}()

	switch cfg.Storage.SessionBackend {
	case "sqlite":
		st, err := sqlite.Open(cfg.Storage.SQLitePath, func(o *sqlite.Options) { o.Logger = logger })
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		stores.Sessions = st
		stores.closers = append(stores.closers, st.Close)
	default:
		stores.Sessions = session.NewInMemoryStore()
	}

	switch cfg.Storage.ArtifactBackend {
	case "s3":
		stores.Artifacts = s3store.NewFromConfig(awsConfigFromEnv(), cfg.Storage.S3Bucket, cfg.Storage.S3Prefix, func(o *awss3.Options) {
			if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
				o.UsePathStyle = true
			}
		})
	default:
		stores.Artifacts = artifact.NewInMemoryStore()
	}

	switch cfg.Storage.MemoryBackend {
	case "badger":
		st, err := badgerstore.Open(badgerstore.Options{Dir: cfg.Storage.BadgerDir, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("open memory store: %w", err)
		}
		stores.Memory = st
		stores.closers = append(stores.closers, st.Close)
	default:
		stores.Memory = memory.NewInMemoryStore()
	}

	return stores, nil
}

// awsConfigFromEnv reads the region and static credentials from the standard
// AWS environment variables.
func awsConfigFromEnv() aws.Config {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
		if id == "" || secret == "" {
			return aws.Credentials{}, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}, nil
	})
	return aws.Config{Region: region, Credentials: aws.NewCredentialsCache(creds)}
}

// NewModel builds the model named by the model section of cfg. Rate limiting
// and call logging are applied as middleware.
func NewModel(ctx context.Context, cfg config.ModelConfig, logger logging.Logger) (model.Model, error) {
	var m model.Model
	switch cfg.Provider {
	case "openai":
		m = openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
		})
	case "anthropic":
		m = anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}
		})
	case "gemini":
		gm, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = float32(cfg.Temperature)
			if cfg.MaxTokens > 0 {
				o.MaxOutputTokens = int32(cfg.MaxTokens)
			}
		})
		if err != nil {
			return nil, err
		}
		m = gm
	case "mock", "":
		name := cfg.Name
		if name == "" {
			name = "mock"
		}
		m = model.NewMockModel(name, "mock")
	default:
		return nil, fmt.Errorf("%w: unknown model provider %q", config.ErrInvalidConfig, cfg.Provider)
	}

	var mws []middleware.ModelMiddleware
	if cfg.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(cfg.RateLimit, cfg.Burst))
	}
	if logger != nil {
		mws = append(mws, middleware.LogCalls(logging.With(logger, "provider", m.Info().Provider)))
	}
	return middleware.WrapModel(m, mws...), nil
}

// NewFromConfig opens the configured stores and returns an App over them.
// The returned Stores must be closed by the caller.
func NewFromConfig(cfg config.Config, logger logging.Logger, optFns ...func(o *Options)) (*App, *Stores, error) {
	stores, err := OpenStores(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	app := New(func(o *Options) {
		o.SessionStore = stores.Sessions
		o.ArtifactStore = stores.Artifacts
		o.MemoryStore = stores.Memory
		o.MaxModelCalls = cfg.Model.MaxCalls
		o.Logger = logger
		for _, fn := range optFns {
			fn(o)
		}
	})
	return app, stores, nil
}

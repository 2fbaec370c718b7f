// Package config loads daemon configuration.
//
// A YAML file is decoded to a generic map, unified with the embedded CUE
// schema (which carries defaults and constraints) and decoded once it is
// concrete. DROPFARM_* environment variables are applied last and win over
// the file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/gql"
	"github.com/roach88/dropfarm/internal/session"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DROPFARM_"

// Config is the resolved daemon configuration.
type Config struct {
	Polling   Polling   `envPrefix:"POLLING_"`
	Rotation  Rotation  `envPrefix:"ROTATION_"`
	Claim     Claim     `envPrefix:"CLAIM_"`
	Session   Session   `envPrefix:"SESSION_"`
	Campaigns Campaigns `envPrefix:"CAMPAIGNS_"`
	GraphQL   GraphQL   `envPrefix:"GRAPHQL_"`
	Server    Server    `envPrefix:"SERVER_"`
	Store     Store     `envPrefix:"STORE_"`
	Log       Log       `envPrefix:"LOG_"`
}

type Polling struct {
	Tick           time.Duration `env:"TICK"`
	FullRefresh    time.Duration `env:"FULL_REFRESH"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

type Rotation struct {
	Grace     time.Duration `env:"GRACE"`
	Stall     time.Duration `env:"STALL"`
	Cooldown  time.Duration `env:"COOLDOWN"`
	Threshold int           `env:"THRESHOLD"`
	Weights   Weights       `envPrefix:"WEIGHT_"`
}

type Weights struct {
	Ambiguous    int `env:"AMBIGUOUS"`
	NotLive      int `env:"NOT_LIVE"`
	WrongChannel int `env:"WRONG_CHANNEL"`
}

type Claim struct {
	Retry time.Duration `env:"RETRY"`
}

type Session struct {
	Retry      time.Duration `env:"RETRY"`
	Validate   bool          `env:"VALIDATE"`
	OAuthToken string        `env:"OAUTH_TOKEN"`
	UserID     string        `env:"USER_ID"`
	DeviceID   string        `env:"DEVICE_ID"`
}

type Campaigns struct {
	CacheTTL time.Duration `env:"CACHE_TTL"`
}

type GraphQL struct {
	Endpoint    string            `env:"ENDPOINT"`
	ValidateURL string            `env:"VALIDATE_URL"`
	ClientID    string            `env:"CLIENT_ID"`
	UserAgent   string            `env:"USER_AGENT"`
	DetailBatch int               `env:"DETAIL_BATCH"`
	Operations  map[string]string `env:"OPERATIONS"`
}

type Server struct {
	Listen string `env:"LISTEN"`
}

type Store struct {
	Path string `env:"PATH"`
}

type Log struct {
	Level string `env:"LEVEL"`
}

// raw mirrors the CUE schema; durations stay strings until parsed.
type raw struct {
	Polling struct {
		Tick           string `json:"tick"`
		FullRefresh    string `json:"full_refresh"`
		RequestTimeout string `json:"request_timeout"`
	} `json:"polling"`
	Rotation struct {
		Grace     string `json:"grace"`
		Stall     string `json:"stall"`
		Cooldown  string `json:"cooldown"`
		Threshold int    `json:"threshold"`
		Weights   struct {
			Ambiguous    int `json:"ambiguous"`
			NotLive      int `json:"not_live"`
			WrongChannel int `json:"wrong_channel"`
		} `json:"weights"`
	} `json:"rotation"`
	Claim struct {
		Retry string `json:"retry"`
	} `json:"claim"`
	Session struct {
		Retry      string `json:"retry"`
		Validate   bool   `json:"validate"`
		OAuthToken string `json:"oauth_token"`
		UserID     string `json:"user_id"`
		DeviceID   string `json:"device_id"`
	} `json:"session"`
	Campaigns struct {
		CacheTTL string `json:"cache_ttl"`
	} `json:"campaigns"`
	GraphQL struct {
		Endpoint    string            `json:"endpoint"`
		ValidateURL string            `json:"validate_url"`
		ClientID    string            `json:"client_id"`
		UserAgent   string            `json:"user_agent"`
		DetailBatch int               `json:"detail_batch"`
		Operations  map[string]string `json:"operations"`
	} `json:"graphql"`
	Server struct {
		Listen string `json:"listen"`
	} `json:"server"`
	Store struct {
		Path string `json:"path"`
	} `json:"store"`
	Log struct {
		Level string `json:"level"`
	} `json:"log"`
}

// Load reads the file at path, or only defaults when path is empty, and
// applies environment overrides.
func Load(path string) (Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		data = b
	}
	cfg, err := Parse(data)
	if err != nil {
		if path != "" {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		return Config{}, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse unifies YAML data with the schema. Empty data yields the defaults.
func Parse(data []byte) (Config, error) {
	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := def.Unify(ctx.Encode(doc))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	var r raw
	if err := value.Decode(&r); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return r.resolve()
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not satisfy schema: %v", err))
	}
	return cfg
}

// ApplyEnv overlays DROPFARM_* variables onto cfg and re-checks bounds.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return cfg.Validate()
}

func (r raw) resolve() (Config, error) {
	var errs []error
	dur := func(field, s string) time.Duration {
		d, err := time.ParseDuration(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
		return d
	}

	cfg := Config{
		Polling: Polling{
			Tick:           dur("polling.tick", r.Polling.Tick),
			FullRefresh:    dur("polling.full_refresh", r.Polling.FullRefresh),
			RequestTimeout: dur("polling.request_timeout", r.Polling.RequestTimeout),
		},
		Rotation: Rotation{
			Grace:     dur("rotation.grace", r.Rotation.Grace),
			Stall:     dur("rotation.stall", r.Rotation.Stall),
			Cooldown:  dur("rotation.cooldown", r.Rotation.Cooldown),
			Threshold: r.Rotation.Threshold,
			Weights: Weights{
				Ambiguous:    r.Rotation.Weights.Ambiguous,
				NotLive:      r.Rotation.Weights.NotLive,
				WrongChannel: r.Rotation.Weights.WrongChannel,
			},
		},
		Claim: Claim{Retry: dur("claim.retry", r.Claim.Retry)},
		Session: Session{
			Retry:      dur("session.retry", r.Session.Retry),
			Validate:   r.Session.Validate,
			OAuthToken: r.Session.OAuthToken,
			UserID:     r.Session.UserID,
			DeviceID:   r.Session.DeviceID,
		},
		Campaigns: Campaigns{CacheTTL: dur("campaigns.cache_ttl", r.Campaigns.CacheTTL)},
		GraphQL: GraphQL{
			Endpoint:    r.GraphQL.Endpoint,
			ValidateURL: r.GraphQL.ValidateURL,
			ClientID:    r.GraphQL.ClientID,
			UserAgent:   r.GraphQL.UserAgent,
			DetailBatch: r.GraphQL.DetailBatch,
			Operations:  r.GraphQL.Operations,
		},
		Server: Server{Listen: r.Server.Listen},
		Store:  Store{Path: r.Store.Path},
		Log:    Log{Level: r.Log.Level},
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the bounds environment overrides could have broken.
func (c Config) Validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		d    time.Duration
	}{
		{"polling.tick", c.Polling.Tick},
		{"polling.full_refresh", c.Polling.FullRefresh},
		{"polling.request_timeout", c.Polling.RequestTimeout},
		{"rotation.grace", c.Rotation.Grace},
		{"rotation.stall", c.Rotation.Stall},
		{"claim.retry", c.Claim.Retry},
		{"campaigns.cache_ttl", c.Campaigns.CacheTTL},
	} {
		if f.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", f.name))
		}
	}
	if c.Rotation.Cooldown < 0 {
		errs = append(errs, errors.New("rotation.cooldown must not be negative"))
	}
	if c.Rotation.Threshold < 1 {
		errs = append(errs, errors.New("rotation.threshold must be at least 1"))
	}
	if c.GraphQL.DetailBatch < 1 {
		errs = append(errs, errors.New("graphql.detail_batch must be at least 1"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

// EngineOptions maps the configuration onto engine cadences.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		TickInterval:        c.Polling.Tick,
		FullRefreshInterval: c.Polling.FullRefresh,
		GraceWindow:         c.Rotation.Grace,
		StallWindow:         c.Rotation.Stall,
		RotationCooldown:    c.Rotation.Cooldown,
		ClaimRetryCooldown:  c.Claim.Retry,
		RequestTimeout:      c.Polling.RequestTimeout,
		CampaignCacheTTL:    c.Campaigns.CacheTTL,
		RotationThreshold:   c.Rotation.Threshold,
		Weights: engine.Weights{
			Ambiguous:    c.Rotation.Weights.Ambiguous,
			NotLive:      c.Rotation.Weights.NotLive,
			WrongChannel: c.Rotation.Weights.WrongChannel,
		},
	}
}

// GraphQLConfig maps the configuration onto the GraphQL client.
func (c Config) GraphQLConfig() gql.Config {
	return gql.Config{
		Endpoint:    c.GraphQL.Endpoint,
		ValidateURL: c.GraphQL.ValidateURL,
		ClientID:    c.GraphQL.ClientID,
		UserAgent:   c.GraphQL.UserAgent,
		Operations:  c.GraphQL.Operations,
		DetailBatch: c.GraphQL.DetailBatch,
	}
}

// SessionStatic returns the configured credentials.
func (c Config) SessionStatic() session.Static {
	return session.Static{
		OAuthToken: c.Session.OAuthToken,
		UserID:     c.Session.UserID,
		DeviceID:   c.Session.DeviceID,
	}
}

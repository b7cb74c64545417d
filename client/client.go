package client

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/jonwraymond/peddler/api"
	"github.com/jonwraymond/peddler/auth"
	"github.com/jonwraymond/peddler/cache"
	"github.com/jonwraymond/peddler/health"
	"github.com/jonwraymond/peddler/observe"
	"github.com/jonwraymond/peddler/transport"
)

// Client is a caching client for one agent.
//
// The cache fields are created by New and never replaced.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every network operation honors ctx; loads shared with other
// callers keep running when one caller gives up.
type Client struct {
	cfg     Config
	token   string
	api     *api.Client
	public  *api.Client
	obs     observe.Observer
	ownsObs bool
	logger  observe.Logger
	checks  *health.Aggregator

	// Agent is the player's agent.
	Agent *cache.Value[Agent]

	// Ships is the fleet, keyed by ship symbol.
	Ships *cache.Keyed[string, Ship]

	// Systems is every known system, keyed by system symbol.
	Systems *cache.Keyed[string, System]

	// Cooldowns holds ship cooldowns, keyed by ship symbol.
	Cooldowns *cache.PerKey[string, Cooldown]

	// Waypoints, Markets and Shipyards are keyed by waypoint symbol.
	Waypoints *cache.PerKey[string, Waypoint]
	Markets   *cache.PerKey[string, Market]
	Shipyards *cache.PerKey[string, Shipyard]
}

// New creates a Client. The token is resolved once, here.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	token, err := cfg.resolveToken(ctx)
	if err != nil {
		return nil, err
	}

	obs, owns := cfg.Observer, false
	if obs == nil {
		if obs, err = observe.NewObserver(ctx, cfg.Observe); err != nil {
			return nil, fmt.Errorf("client: observer: %w", err)
		}
		owns = true
	}

	logger := obs.Logger().With(observe.F("component", "client"))
	metrics := obs.Metrics()

	dedup := transport.NewDeduplicator(cfg.Transport,
		transport.WithLogger(obs.Logger().With(observe.F("component", "transport"))),
		transport.WithMetrics(metrics),
	)
	calls := observe.MiddlewareFromObserver(obs)
	policy := cfg.retryPolicy(logger, metrics)

	authed, err := api.New(cfg.BaseURL,
		api.WithHTTPClient(&http.Client{Transport: &auth.BearerTransport{Token: token, Base: dedup}}),
		api.WithRetryPolicy(policy),
		api.WithMiddleware(calls),
	)
	if err != nil {
		return nil, err
	}
	public, err := api.New(cfg.BaseURL,
		api.WithHTTPClient(&http.Client{Transport: dedup}),
		api.WithRetryPolicy(policy),
		api.WithMiddleware(calls),
	)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     cfg,
		token:   token,
		api:     authed,
		public:  public,
		obs:     obs,
		ownsObs: owns,
		logger:  logger,
	}

	opts := func(name string) []cache.Option {
		return []cache.Option{
			cache.WithName(name),
			cache.WithLogger(obs.Logger().With(observe.F("component", "cache"))),
			cache.WithMetrics(metrics),
		}
	}
	c.Agent = cache.NewValue(c.fetchAgent, opts("agent")...)
	c.Ships = cache.NewKeyed(func(s Ship) string { return s.Symbol }, c.listShips, opts("ships")...)
	c.Systems = cache.NewKeyed(func(s System) string { return s.Symbol }, c.listSystems, opts("systems")...)
	c.Cooldowns = cache.NewPerKey(c.fetchCooldown, opts("cooldowns")...)
	c.Waypoints = cache.NewPerKey(c.fetchWaypoint, opts("waypoints")...)
	c.Markets = cache.NewPerKey(c.fetchMarket, opts("markets")...)
	c.Shipyards = cache.NewPerKey(c.fetchShipyard, opts("shipyards")...)

	c.checks = c.newHealth()

	logger.Debug(ctx, "client ready",
		observe.F("base_url", cfg.BaseURL),
		observe.F("authenticated", token != ""),
	)
	return c, nil
}

// Close shuts down telemetry the client created. It does not touch a
// caller-supplied Observer.
func (c *Client) Close(ctx context.Context) error {
	if !c.ownsObs {
		return nil
	}
	return c.obs.Shutdown(ctx)
}

// HasValidToken reports whether the API accepts the client's token.
func (c *Client) HasValidToken(ctx context.Context) bool {
	if c.token == "" {
		return false
	}
	_, err := c.fetchAgent(ctx)
	return err == nil
}

// Token returns the resolved agent token, empty when the client has none.
func (c *Client) Token() string { return c.token }

// Claims decodes the client's agent token without verifying it.
func (c *Client) Claims() (*auth.AgentClaims, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	return auth.ParseAgentToken(c.token)
}

// ListFactions returns every faction. It needs no token and is not cached.
func (c *Client) ListFactions(ctx context.Context) iter.Seq2[Faction, error] {
	return api.Pages[Faction](ctx, c.public, api.Request{
		Op:   op("factions", "list"),
		Path: "/factions",
	}, c.cfg.PageSize)
}

func (c *Client) fetchAgent(ctx context.Context) (Agent, error) {
	return api.Do[Agent](ctx, c.api, api.Request{
		Op:   op("agent", "get"),
		Path: "/my/agent",
	})
}

func (c *Client) listShips(ctx context.Context) iter.Seq2[Ship, error] {
	return api.Pages[Ship](ctx, c.api, api.Request{
		Op:   op("fleet", "list"),
		Path: "/my/ships",
	}, c.cfg.PageSize)
}

func (c *Client) listSystems(ctx context.Context) iter.Seq2[System, error] {
	return api.Pages[System](ctx, c.api, api.Request{
		Op:   op("systems", "list"),
		Path: "/systems",
	}, c.cfg.PageSize)
}

// fetchCooldown answers a zero Cooldown for the ship when it has none.
func (c *Client) fetchCooldown(ctx context.Context, ship string) (Cooldown, error) {
	cd, err := api.Do[Cooldown](ctx, c.api, api.Request{
		Op:   op("fleet", "cooldown"),
		Path: pathOf("my", "ships", ship, "cooldown"),
	})
	if err != nil {
		return Cooldown{}, err
	}
	if cd.ShipSymbol == "" {
		cd.ShipSymbol = ship
	}
	return cd, nil
}

func (c *Client) fetchWaypoint(ctx context.Context, waypoint string) (Waypoint, error) {
	return api.Do[Waypoint](ctx, c.api, api.Request{
		Op:   op("systems", "waypoint"),
		Path: pathOf("systems", SystemSymbol(waypoint), "waypoints", waypoint),
	})
}

func (c *Client) fetchMarket(ctx context.Context, waypoint string) (Market, error) {
	return api.Do[Market](ctx, c.api, api.Request{
		Op:   op("systems", "market"),
		Path: pathOf("systems", SystemSymbol(waypoint), "waypoints", waypoint, "market"),
	})
}

func (c *Client) fetchShipyard(ctx context.Context, waypoint string) (Shipyard, error) {
	return api.Do[Shipyard](ctx, c.api, api.Request{
		Op:   op("systems", "shipyard"),
		Path: pathOf("systems", SystemSymbol(waypoint), "waypoints", waypoint, "shipyard"),
	})
}

func op(component, name string) observe.OpMeta {
	return observe.OpMeta{Component: component, Name: name}
}

func pathOf(segments ...string) string {
	return "/" + strings.Join(lo.Map(segments, func(s string, _ int) string {
		return url.PathEscape(s)
	}), "/")
}

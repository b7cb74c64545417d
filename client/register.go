package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonwraymond/peddler/api"
	"github.com/jonwraymond/peddler/observe"
)

type registration struct {
	Symbol  string `json:"symbol"`
	Faction string `json:"faction"`
	Email   string `json:"email,omitempty"`
}

type registerData struct {
	Token string `json:"token"`
	Agent Agent  `json:"agent"`
	Ship  Ship   `json:"ship"`
}

// Register creates a new agent through the public API and returns a Client
// holding the agent's token. cfg.Token is ignored. The new agent and its
// starting ship are already in the returned Client's caches.
//
// The token is only available from the returned Client's Token method;
// callers that want to reuse the agent must store it.
func Register(ctx context.Context, cfg Config, symbol, faction, email string) (*Client, error) {
	cfg.Token = ""
	anon, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d, err := api.Do[registerData](ctx, anon.public, api.Request{
		Op:     op("agent", "register"),
		Method: http.MethodPost,
		Path:   "/register",
		Body:   registration{Symbol: symbol, Faction: faction, Email: email},
	})
	if cerr := anon.Close(ctx); cerr != nil {
		anon.logger.Warn(ctx, "close failed", observe.F("error", cerr))
	}
	if err != nil {
		return nil, fmt.Errorf("client: register %s: %w", symbol, err)
	}
	if d.Token == "" {
		return nil, fmt.Errorf("%w: register %s", ErrNoToken, symbol)
	}

	cfg.Token = d.Token
	c, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.Agent.Push(d.Agent)
	if d.Ship.Symbol != "" {
		c.Ships.Push(d.Ship)
	}
	return c, nil
}

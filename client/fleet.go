package client

import (
	"context"
	"net/http"

	"github.com/jonwraymond/peddler/api"
)

type navData struct {
	Nav Nav `json:"nav"`
}

type flightData struct {
	Nav  Nav  `json:"nav"`
	Fuel Fuel `json:"fuel"`
}

type refuelData struct {
	Agent Agent `json:"agent"`
	Fuel  Fuel  `json:"fuel"`
}

type tradeData struct {
	Agent Agent `json:"agent"`
	Cargo Cargo `json:"cargo"`
}

type cargoData struct {
	Cargo Cargo `json:"cargo"`
}

type surveyData struct {
	Cooldown Cooldown `json:"cooldown"`
	Surveys  []Survey `json:"surveys"`
}

type jumpData struct {
	Cooldown Cooldown `json:"cooldown"`
	Nav      Nav      `json:"nav"`
}

type refineData struct {
	Cargo    Cargo        `json:"cargo"`
	Cooldown Cooldown     `json:"cooldown"`
	Produced []Refinement `json:"produced"`
	Consumed []Refinement `json:"consumed"`
}

type purchaseShipData struct {
	Agent Agent `json:"agent"`
	Ship  Ship  `json:"ship"`
}

type cargoOrder struct {
	Symbol string `json:"symbol"`
	Units  int    `json:"units"`
}

// Orbit moves a docked ship into orbit.
func (c *Client) Orbit(ctx context.Context, ship string) (Nav, error) {
	d, err := shipAction[navData](ctx, c, ship, "orbit", http.MethodPost, nil)
	if err != nil {
		return Nav{}, err
	}
	c.updateShip(ship, func(s *Ship) { s.Nav = d.Nav })
	return d.Nav, nil
}

// Dock docks an orbiting ship.
func (c *Client) Dock(ctx context.Context, ship string) (Nav, error) {
	d, err := shipAction[navData](ctx, c, ship, "dock", http.MethodPost, nil)
	if err != nil {
		return Nav{}, err
	}
	c.updateShip(ship, func(s *Ship) { s.Nav = d.Nav })
	return d.Nav, nil
}

// Navigate flies a ship to a waypoint of its current system.
func (c *Client) Navigate(ctx context.Context, ship, waypoint string) (Nav, error) {
	return c.fly(ctx, ship, "navigate", waypoint)
}

// Warp flies a ship to a waypoint of another system.
func (c *Client) Warp(ctx context.Context, ship, waypoint string) (Nav, error) {
	return c.fly(ctx, ship, "warp", waypoint)
}

func (c *Client) fly(ctx context.Context, ship, action, waypoint string) (Nav, error) {
	body := map[string]string{"waypointSymbol": waypoint}
	d, err := shipAction[flightData](ctx, c, ship, action, http.MethodPost, body)
	if err != nil {
		return Nav{}, err
	}
	c.updateShip(ship, func(s *Ship) {
		s.Nav = d.Nav
		s.Fuel = d.Fuel
	})
	return d.Nav, nil
}

// SetFlightMode changes how a ship trades fuel for speed.
func (c *Client) SetFlightMode(ctx context.Context, ship, mode string) (Nav, error) {
	body := map[string]string{"flightMode": mode}
	nav, err := shipAction[Nav](ctx, c, ship, "nav", http.MethodPatch, body)
	if err != nil {
		return Nav{}, err
	}
	c.updateShip(ship, func(s *Ship) { s.Nav = nav })
	return nav, nil
}

// Refuel fills a docked ship's tank at the local market.
func (c *Client) Refuel(ctx context.Context, ship string) (Fuel, error) {
	d, err := shipAction[refuelData](ctx, c, ship, "refuel", http.MethodPost, nil)
	if err != nil {
		return Fuel{}, err
	}
	c.Agent.Push(d.Agent)
	c.updateShip(ship, func(s *Ship) { s.Fuel = d.Fuel })
	return d.Fuel, nil
}

// PurchaseCargo buys units of a good at the local market.
func (c *Client) PurchaseCargo(ctx context.Context, ship, good string, units int) (Cargo, error) {
	return c.trade(ctx, ship, "purchase", good, units)
}

// SellCargo sells units of a good at the local market.
func (c *Client) SellCargo(ctx context.Context, ship, good string, units int) (Cargo, error) {
	return c.trade(ctx, ship, "sell", good, units)
}

func (c *Client) trade(ctx context.Context, ship, action, good string, units int) (Cargo, error) {
	d, err := shipAction[tradeData](ctx, c, ship, action, http.MethodPost, cargoOrder{Symbol: good, Units: units})
	if err != nil {
		return Cargo{}, err
	}
	c.Agent.Push(d.Agent)
	c.updateShip(ship, func(s *Ship) { s.Cargo = d.Cargo })
	return d.Cargo, nil
}

// Jettison throws units of a good out of a ship's hold.
func (c *Client) Jettison(ctx context.Context, ship, good string, units int) (Cargo, error) {
	d, err := shipAction[cargoData](ctx, c, ship, "jettison", http.MethodPost, cargoOrder{Symbol: good, Units: units})
	if err != nil {
		return Cargo{}, err
	}
	c.updateShip(ship, func(s *Ship) { s.Cargo = d.Cargo })
	return d.Cargo, nil
}

// Refine turns raw goods in a ship's hold into produce. The ship's cargo
// and cooldown are set from the answer.
func (c *Client) Refine(ctx context.Context, ship, produce string) (Cargo, error) {
	body := map[string]string{"produce": produce}
	d, err := shipAction[refineData](ctx, c, ship, "refine", http.MethodPost, body)
	if err != nil {
		return Cargo{}, err
	}
	c.updateShip(ship, func(s *Ship) { s.Cargo = d.Cargo })
	c.setCooldown(ship, d.Cooldown)
	return d.Cargo, nil
}

// CreateSurvey surveys the ship's waypoint. The ship's cooldown is set from
// the answer.
func (c *Client) CreateSurvey(ctx context.Context, ship string) ([]Survey, error) {
	d, err := shipAction[surveyData](ctx, c, ship, "survey", http.MethodPost, nil)
	if err != nil {
		return nil, err
	}
	c.setCooldown(ship, d.Cooldown)
	return d.Surveys, nil
}

// Jump moves a ship to another system through a jump gate. The ship's
// navigation and cooldown are set from the answer.
func (c *Client) Jump(ctx context.Context, ship, system string) (Nav, error) {
	body := map[string]string{"systemSymbol": system}
	d, err := shipAction[jumpData](ctx, c, ship, "jump", http.MethodPost, body)
	if err != nil {
		return Nav{}, err
	}
	c.updateShip(ship, func(s *Ship) { s.Nav = d.Nav })
	c.setCooldown(ship, d.Cooldown)
	return d.Nav, nil
}

// PurchaseShip buys a ship at a shipyard waypoint and adds it to Ships.
func (c *Client) PurchaseShip(ctx context.Context, shipType, waypoint string) (Ship, error) {
	d, err := doCall[purchaseShipData](ctx, c, "purchase", http.MethodPost, pathOf("my", "ships"),
		map[string]string{"shipType": shipType, "waypointSymbol": waypoint})
	if err != nil {
		return Ship{}, err
	}
	c.Agent.Push(d.Agent)
	c.Ships.Push(d.Ship)
	return d.Ship, nil
}

// updateShip rewrites a held ship. Ships not held yet are left for the bulk
// load to bring in whole.
func (c *Client) updateShip(symbol string, fn func(*Ship)) {
	c.Ships.Update(symbol, func(s Ship) Ship {
		fn(&s)
		return s
	})
}

func (c *Client) setCooldown(ship string, cd Cooldown) {
	if cd.ShipSymbol == "" {
		cd.ShipSymbol = ship
	}
	c.Cooldowns.Set(ship, cd)
}

func shipAction[T any](ctx context.Context, c *Client, ship, action, method string, body any) (T, error) {
	return doCall[T](ctx, c, action, method, pathOf("my", "ships", ship, action), body)
}

func doCall[T any](ctx context.Context, c *Client, action, method, path string, body any) (T, error) {
	if c.token == "" {
		var zero T
		return zero, ErrNoToken
	}
	return api.Do[T](ctx, c.api, api.Request{
		Op:     op("fleet", action),
		Method: method,
		Path:   path,
		Body:   body,
	})
}

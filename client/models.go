package client

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Agent is the player's account state.
type Agent struct {
	AccountID       string `json:"accountId"`
	Symbol          string `json:"symbol"`
	Headquarters    string `json:"headquarters"`
	Credits         int64  `json:"credits"`
	StartingFaction string `json:"startingFaction"`
	ShipCount       int    `json:"shipCount"`
}

// Ship is one ship of the fleet.
type Ship struct {
	Symbol       string       `json:"symbol"`
	Registration Registration `json:"registration"`
	Nav          Nav          `json:"nav"`
	Cargo        Cargo        `json:"cargo"`
	Fuel         Fuel         `json:"fuel"`
}

// Registration identifies a ship's owner and role.
type Registration struct {
	Name          string `json:"name"`
	FactionSymbol string `json:"factionSymbol"`
	Role          string `json:"role"`
}

// Nav is a ship's navigation state.
type Nav struct {
	SystemSymbol   string `json:"systemSymbol"`
	WaypointSymbol string `json:"waypointSymbol"`
	Route          Route  `json:"route"`
	Status         string `json:"status"`
	FlightMode     string `json:"flightMode"`
}

// Ship navigation statuses.
const (
	NavInTransit = "IN_TRANSIT"
	NavInOrbit   = "IN_ORBIT"
	NavDocked    = "DOCKED"
)

// Flight modes.
const (
	FlightDrift   = "DRIFT"
	FlightStealth = "STEALTH"
	FlightCruise  = "CRUISE"
	FlightBurn    = "BURN"
)

// Route is the leg a ship is flying or last flew.
type Route struct {
	Origin        RouteWaypoint `json:"origin"`
	Destination   RouteWaypoint `json:"destination"`
	DepartureTime time.Time     `json:"departureTime"`
	Arrival       time.Time     `json:"arrival"`
}

// RouteWaypoint is one end of a Route.
type RouteWaypoint struct {
	Symbol       string `json:"symbol"`
	Type         string `json:"type"`
	SystemSymbol string `json:"systemSymbol"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
}

// Cargo is a ship's hold.
type Cargo struct {
	Capacity  int         `json:"capacity"`
	Units     int         `json:"units"`
	Inventory []CargoItem `json:"inventory"`
}

// CargoItem is one kind of good in a hold.
type CargoItem struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Units       int    `json:"units"`
}

// Refinement is a quantity of one good made or used by refining.
type Refinement struct {
	TradeSymbol string `json:"tradeSymbol"`
	Units       int    `json:"units"`
}

// Fuel is a ship's fuel tank.
type Fuel struct {
	Current  int `json:"current"`
	Capacity int `json:"capacity"`
}

// Cooldown is the time until a ship can use its reactor-bound actions again.
type Cooldown struct {
	ShipSymbol       string    `json:"shipSymbol"`
	TotalSeconds     int       `json:"totalSeconds"`
	RemainingSeconds int       `json:"remainingSeconds"`
	Expiration       time.Time `json:"expiration,omitzero"`
}

// Active reports whether the cooldown has not expired at now.
func (c Cooldown) Active(now time.Time) bool {
	return !c.Expiration.IsZero() && now.Before(c.Expiration)
}

// System is a star system.
type System struct {
	Symbol       string           `json:"symbol"`
	SectorSymbol string           `json:"sectorSymbol"`
	Type         string           `json:"type"`
	X            int              `json:"x"`
	Y            int              `json:"y"`
	Waypoints    []SystemWaypoint `json:"waypoints"`
	Factions     []FactionRef     `json:"factions"`
}

// SystemWaypoint is the summary of a waypoint held by its System.
type SystemWaypoint struct {
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// Waypoint is a location inside a system.
type Waypoint struct {
	Symbol       string      `json:"symbol"`
	SystemSymbol string      `json:"systemSymbol"`
	Type         string      `json:"type"`
	X            int         `json:"x"`
	Y            int         `json:"y"`
	Orbitals     []Orbital   `json:"orbitals"`
	Faction      *FactionRef `json:"faction,omitempty"`
	Traits       []Trait     `json:"traits"`
}

// HasTrait reports whether the waypoint carries the trait symbol.
func (w Waypoint) HasTrait(symbol string) bool {
	return lo.ContainsBy(w.Traits, func(t Trait) bool { return t.Symbol == symbol })
}

// Orbital is a waypoint orbiting another.
type Orbital struct {
	Symbol string `json:"symbol"`
}

// Trait describes a waypoint feature such as MARKETPLACE or SHIPYARD.
type Trait struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FactionRef names a faction.
type FactionRef struct {
	Symbol string `json:"symbol"`
}

// Faction is a faction of the universe.
type Faction struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Headquarters string  `json:"headquarters"`
	Traits       []Trait `json:"traits"`
	IsRecruiting bool    `json:"isRecruiting"`
}

// Market is what a marketplace waypoint trades.
type Market struct {
	Symbol     string        `json:"symbol"`
	Exports    []TradeSymbol `json:"exports"`
	Imports    []TradeSymbol `json:"imports"`
	Exchange   []TradeSymbol `json:"exchange"`
	TradeGoods []TradeGood   `json:"tradeGoods,omitempty"`
}

// TradeSymbol names a good a market deals in.
type TradeSymbol struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TradeGood carries current prices. Markets only report them while a ship
// is present.
type TradeGood struct {
	Symbol        string `json:"symbol"`
	TradeVolume   int    `json:"tradeVolume"`
	Supply        string `json:"supply"`
	PurchasePrice int    `json:"purchasePrice"`
	SellPrice     int    `json:"sellPrice"`
}

// Price returns the trade good for symbol.
func (m Market) Price(symbol string) (TradeGood, bool) {
	return lo.Find(m.TradeGoods, func(g TradeGood) bool { return g.Symbol == symbol })
}

// Shipyard is what a shipyard waypoint sells.
type Shipyard struct {
	Symbol    string         `json:"symbol"`
	ShipTypes []ShipTypeRef  `json:"shipTypes"`
	Ships     []ShipyardShip `json:"ships,omitempty"`
}

// ShipTypeRef names a ship type.
type ShipTypeRef struct {
	Type string `json:"type"`
}

// ShipyardShip is a ship for sale. Prices are only reported while a ship is
// present.
type ShipyardShip struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PurchasePrice int    `json:"purchasePrice"`
}

// Survey is the result of surveying an extraction site.
type Survey struct {
	Signature  string    `json:"signature"`
	Symbol     string    `json:"symbol"`
	Deposits   []Deposit `json:"deposits"`
	Expiration time.Time `json:"expiration"`
	Size       string    `json:"size"`
}

// Deposit is one resource a survey found.
type Deposit struct {
	Symbol string `json:"symbol"`
}

// SystemSymbol returns the system part of a waypoint symbol: everything
// before the last hyphen. "X1-DF55-20250Z" belongs to "X1-DF55". A symbol
// without a hyphen is returned unchanged.
func SystemSymbol(waypoint string) string {
	i := strings.LastIndexByte(waypoint, '-')
	if i <= 0 {
		return waypoint
	}
	return waypoint[:i]
}

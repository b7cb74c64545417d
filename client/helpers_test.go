package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/peddler/observe"
)

const testWaypoint = "X1-DF55-A1"

// agentToken builds a token the fake API accepts.
func agentToken(t *testing.T, identifier string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"identifier": identifier,
		"reset_date": "2026-10-04",
		"iat":        time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC).Unix(),
	}).SignedString([]byte("fake-server-key"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return tok
}

func testShip(n int) Ship {
	return Ship{
		Symbol:       "PEDDLER-" + strconv.Itoa(n),
		Registration: Registration{Name: "PEDDLER-" + strconv.Itoa(n), FactionSymbol: "COSMIC", Role: "HAULER"},
		Nav: Nav{
			SystemSymbol:   "X1-DF55",
			WaypointSymbol: testWaypoint,
			Status:         NavDocked,
			FlightMode:     FlightCruise,
		},
		Cargo: Cargo{Capacity: 40},
		Fuel:  Fuel{Current: 100, Capacity: 400},
	}
}

// fakeAPI serves the subset of the game API the client uses.
type fakeAPI struct {
	t     *testing.T
	token string
	ships []Ship

	mu          sync.Mutex
	hits        map[string]int
	rateLimited map[string]int
	credits     int64
	authHeaders []string
}

func newFakeAPI(t *testing.T, ships int) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		t:           t,
		token:       agentToken(t, "PEDDLER"),
		hits:        make(map[string]int),
		rateLimited: make(map[string]int),
		credits:     175000,
	}
	for i := 1; i <= ships; i++ {
		f.ships = append(f.ships, testShip(i))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2", f.public(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "SpaceTraders is currently online"})
	}))
	mux.HandleFunc("GET /v2/factions", f.public(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		f.mu.Unlock()
		writePage(w, r, []Faction{{Symbol: "COSMIC"}, {Symbol: "VOID"}, {Symbol: "GALACTIC"}})
	}))
	mux.HandleFunc("POST /v2/register", f.public(func(w http.ResponseWriter, r *http.Request) {
		var body registration
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Symbol == "" || body.Faction == "" {
			writeError(w, http.StatusUnprocessableEntity, "Symbol and faction are required", 422)
			return
		}
		agent := f.agent()
		agent.Symbol, agent.StartingFaction = body.Symbol, body.Faction
		writeJSON(w, http.StatusCreated, map[string]any{"data": registerData{Token: f.token, Agent: agent, Ship: testShip(1)}})
	}))
	mux.HandleFunc("GET /v2/my/agent", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, f.agent())
	}))
	mux.HandleFunc("GET /v2/my/ships", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, f.ships)
	}))
	mux.HandleFunc("POST /v2/my/ships", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		ship := testShip(100)
		ship.Registration.Role = body["shipType"]
		ship.Nav.WaypointSymbol = body["waypointSymbol"]
		writeData(w, purchaseShipData{Agent: f.spend(50000), Ship: ship})
	}))
	mux.HandleFunc("GET /v2/my/ships/{ship}/cooldown", f.authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("ship") != "PEDDLER-2" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeData(w, Cooldown{ShipSymbol: "PEDDLER-2", TotalSeconds: 70, RemainingSeconds: 30})
	}))
	mux.HandleFunc("POST /v2/my/ships/{ship}/orbit", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, navData{Nav: Nav{SystemSymbol: "X1-DF55", WaypointSymbol: testWaypoint, Status: NavInOrbit}})
	}))
	mux.HandleFunc("POST /v2/my/ships/{ship}/dock", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, navData{Nav: Nav{SystemSymbol: "X1-DF55", WaypointSymbol: testWaypoint, Status: NavDocked}})
	}))
	for _, action := range []string{"navigate", "warp"} {
		mux.HandleFunc("POST /v2/my/ships/{ship}/"+action, f.authed(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			dest := body["waypointSymbol"]
			writeData(w, flightData{
				Nav: Nav{
					SystemSymbol:   SystemSymbol(dest),
					WaypointSymbol: dest,
					Status:         NavInTransit,
					Route:          Route{Destination: RouteWaypoint{Symbol: dest}},
				},
				Fuel: Fuel{Current: 60, Capacity: 400},
			})
		}))
	}
	mux.HandleFunc("PATCH /v2/my/ships/{ship}/nav", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeData(w, Nav{SystemSymbol: "X1-DF55", WaypointSymbol: testWaypoint, Status: NavDocked, FlightMode: body["flightMode"]})
	}))
	mux.HandleFunc("POST /v2/my/ships/{ship}/refuel", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, refuelData{Agent: f.spend(300), Fuel: Fuel{Current: 400, Capacity: 400}})
	}))
	for _, action := range []string{"purchase", "sell", "jettison"} {
		mux.HandleFunc("POST /v2/my/ships/{ship}/"+action, f.authed(func(w http.ResponseWriter, r *http.Request) {
			var order cargoOrder
			_ = json.NewDecoder(r.Body).Decode(&order)
			cargo := Cargo{Capacity: 40, Units: order.Units, Inventory: []CargoItem{{Symbol: order.Symbol, Units: order.Units}}}
			writeData(w, tradeData{Agent: f.spend(int64(order.Units) * 10), Cargo: cargo})
		}))
	}
	mux.HandleFunc("POST /v2/my/ships/{ship}/refine", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		produce := body["produce"]
		writeData(w, refineData{
			Cargo:    Cargo{Capacity: 40, Units: 1, Inventory: []CargoItem{{Symbol: produce, Units: 1}}},
			Cooldown: Cooldown{TotalSeconds: 60, RemainingSeconds: 60},
			Produced: []Refinement{{TradeSymbol: produce, Units: 1}},
			Consumed: []Refinement{{TradeSymbol: produce + "_ORE", Units: 3}},
		})
	}))
	mux.HandleFunc("POST /v2/my/ships/{ship}/survey", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, surveyData{
			Cooldown: Cooldown{ShipSymbol: r.PathValue("ship"), TotalSeconds: 70, RemainingSeconds: 70},
			Surveys:  []Survey{{Signature: "X1-DF55-A1-BD5F3E", Symbol: testWaypoint, Size: "SMALL"}},
		})
	}))
	mux.HandleFunc("POST /v2/my/ships/{ship}/jump", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeData(w, jumpData{
			Cooldown: Cooldown{TotalSeconds: 120, RemainingSeconds: 120},
			Nav:      Nav{SystemSymbol: body["systemSymbol"], Status: NavInOrbit},
		})
	}))
	mux.HandleFunc("GET /v2/systems", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writePage(w, r, []System{{Symbol: "X1-DF55", Type: "RED_STAR"}, {Symbol: "X1-ZZ9", Type: "BLUE_STAR"}})
	}))
	mux.HandleFunc("GET /v2/systems/{system}/waypoints/{waypoint}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		system, waypoint := r.PathValue("system"), r.PathValue("waypoint")
		if SystemSymbol(waypoint) != system {
			writeError(w, http.StatusNotFound, "Waypoint not found in system", 4001)
			return
		}
		writeData(w, Waypoint{Symbol: waypoint, SystemSymbol: system, Type: "PLANET", Traits: []Trait{{Symbol: "MARKETPLACE"}}})
	}))
	mux.HandleFunc("GET /v2/systems/{system}/waypoints/{waypoint}/market", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, Market{
			Symbol:     r.PathValue("waypoint"),
			Exports:    []TradeSymbol{{Symbol: "IRON"}},
			TradeGoods: []TradeGood{{Symbol: "IRON", PurchasePrice: 40, SellPrice: 35}},
		})
	}))
	mux.HandleFunc("GET /v2/systems/{system}/waypoints/{waypoint}/shipyard", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, Shipyard{Symbol: r.PathValue("waypoint"), ShipTypes: []ShipTypeRef{{Type: "SHIP_PROBE"}}})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) agent() Agent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Agent{AccountID: "acc-1", Symbol: "PEDDLER", Headquarters: testWaypoint, Credits: f.credits, StartingFaction: "COSMIC"}
}

func (f *fakeAPI) spend(n int64) Agent {
	f.mu.Lock()
	f.credits -= n
	f.mu.Unlock()
	return f.agent()
}

// limit makes the next n requests matching pattern answer 429.
func (f *fakeAPI) limit(pattern string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateLimited[pattern] = n
}

func (f *fakeAPI) count(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[pattern]
}

func (f *fakeAPI) public(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.Pattern]++
		limited := f.rateLimited[r.Pattern] > 0
		if limited {
			f.rateLimited[r.Pattern]--
		}
		f.mu.Unlock()

		if limited {
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded", 429)
			return
		}
		h(w, r)
	}
}

func (f *fakeAPI) authed(h http.HandlerFunc) http.HandlerFunc {
	return f.public(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeError(w, http.StatusUnauthorized, "Invalid token", 4103)
			return
		}
		h(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, code int, msg string, apiCode int) {
	writeJSON(w, code, map[string]any{"error": map[string]any{"message": msg, "code": apiCode}})
}

func writePage[T any](w http.ResponseWriter, r *http.Request, all []T) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 || limit < 1 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("bad paging %q", r.URL.RawQuery), 400)
		return
	}
	from, to := min((page-1)*limit, len(all)), min(page*limit, len(all))
	writeJSON(w, http.StatusOK, map[string]any{
		"data": all[from:to],
		"meta": map[string]int{"total": len(all), "page": page, "limit": limit},
	})
}

// newTestClient creates a Client against srv. mutate adjusts the config.
func newTestClient(t *testing.T, f *fakeAPI, srv *httptest.Server, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:   srv.URL + "/v2",
		Token:     f.token,
		Observe:   observe.Config{ServiceName: "peddler-test"},
		Retry:     RetryConfig{FallbackDelay: time.Millisecond},
		Transport: srv.Client().Transport,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

// recorder collects observer deliveries.
type recorder[T any] struct {
	mu  sync.Mutex
	got []T
}

func (r *recorder[T]) observe(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, v)
}

func (r *recorder[T]) values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.got...)
}

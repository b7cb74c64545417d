// Package client is a caching client for the game API.
//
// A Client keeps the agent, the fleet, known systems and per-ship or
// per-waypoint data in live caches. Reads load lazily and at most once per
// unit; mutations push the server's answer straight into the affected
// caches, so subscribers see every change the client learns about.
//
//	c, err := client.New(ctx, client.Config{Token: "${PEDDLER_TOKEN}"})
//	if err != nil { ... }
//	defer c.Close(ctx)
//
//	agent, err := c.Agent.Get(ctx)
//	for ship, err := range c.Ships.All(ctx) { ... }
//	sub := c.Ships.Subscribe(ctx, func(e cache.Entry[string, client.Ship]) { ... })
//	defer sub.Unsubscribe()
//
// Underneath, identical concurrent requests are coalesced by a
// transport.Deduplicator and every logical call is retried while the API
// answers 429.
package client

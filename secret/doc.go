// Package secret resolves the agent token and other credentials from
// configuration values.
//
// A configuration value is first expanded strictly against the environment
// (see ExpandEnvStrict) and then any secret references in it are resolved by
// the matching Provider:
//   - Full value:  secretref:env:PEDDLER_TOKEN
//   - Inline use:  Bearer secretref:env:PEDDLER_TOKEN
//
// The env provider is registered in DefaultRegistry. Other providers can be
// registered by name before the client is built.
package secret

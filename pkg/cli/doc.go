// Package cli implements the portico-admin operator commands: schema
// migration, first-administrator bootstrap, tenant provisioning and API token
// minting. These are the operations that cannot go through the HTTP API
// because no authenticated system administrator exists yet, or because they
// run from deploy scripts before the server is up.
package cli

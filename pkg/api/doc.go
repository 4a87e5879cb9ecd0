// Package api is the Portico HTTP surface. Routes fall into three groups:
// admin (platform configuration, system admin only), tenant (member and grant
// management, tenant owner only), and business modules (notes, assistant)
// mounted behind the authorization policy gate. Authentication runs first for
// every group; the gate and the role filters assume a resolved actor on the
// request context.
package api

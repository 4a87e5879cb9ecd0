// Package notes is a tenant-scoped text notes module: the simplest example of
// business data living behind the policy gate. System admins are explicitly
// excluded from the data plane here; only tenant owners and permitted members
// read or write notes.
package notes

// Package assistant is a tenant-scoped conversation module. Replies come from
// a pluggable Responder; the default EchoResponder keeps the module functional
// without an inference backend. Conversation content is tenant business data
// and is closed to system admins.
package assistant

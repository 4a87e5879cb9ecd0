// Package authn resolves bearer API tokens to directory actors.
//
// Tokens use the format ptc_<base64url(32 random bytes)>. Only the SHA-256
// hash of a token is ever stored; the plaintext is shown once at creation.
// The resolver keeps a short-TTL LRU of positive resolutions so hot tokens
// do not hit the directory on every request. Authorization decisions are
// out of scope here; see pkg/authz.
package authn

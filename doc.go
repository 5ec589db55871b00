// Package authcore is the multi-tenant authentication, authorization and
// tenant-resolution core of the Shepherd church-management platform.
//
// The root package owns the orchestrating Service (login, registration,
// token refresh, logout, password flows) and the request-context plumbing.
// Supporting concerns live in subpackages: permission (role model), jwt
// (token issuance), password (argon2id hashing), cache (Redis-backed
// key-value store), session (cache-resident session artifacts), tenant
// (tenant model and request resolution), store (credential store),
// middleware (HTTP pipeline) and httpapi (the HTTP surface).
//
// The Service is constructed once at the composition root with its
// credential store, cache and mail collaborators injected, and shared by
// reference across request handlers. It holds no per-request mutable
// state; all ephemeral state lives in the cache.
package authcore

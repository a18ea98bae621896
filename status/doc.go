// Package status serves a read-only HTTP view of the provider registry.
//
// Routes:
//
//	GET /providers        every provider in registration order
//	GET /providers/:name  one provider, 404 PROVIDER_NOT_FOUND when unknown
//	GET /health           aggregate health derived from provider states
//	GET /version          build information
//
// The server is wired into an application through OnReady/OnStop hooks.
package status

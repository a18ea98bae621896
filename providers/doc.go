// Package providers defines the service provider contract and the registry
// that owns every provider's lifecycle state.
//
// Providers own behavior; the Registry owns state. A provider record is
// created by Set and moves only through the Registry's transition methods:
//
//	Registered ─▶ Booted ─▶ Disposed ─▶ Booted ...
//	    │  ▲                   │
//	    │  └──── Deferred ◀────┘
//	    └─▶ Failed (terminal)
//
// Records are never removed, so state queries are total over every name the
// registry has ever seen.
package providers

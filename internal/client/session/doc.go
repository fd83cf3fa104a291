// Package session owns the process-wide session state of the client.
//
// # Overview
//
// A single Manager is constructed at startup and injected into whatever
// issues HTTP calls. It is the only writer of the in-memory session and of
// its persisted mirror in the credential store; consumers read it through
// IsAuthenticated, CurrentPrincipal and Snapshot, and observe changes via
// Subscribe.
//
// # Renewal protocol
//
// The request guard calls Renew after an authorization failure. Renewals are
// single-flight per session: the first failure starts the refresh call and
// every concurrent failure waits on the same result. A request that failed
// with a credential which has since been replaced gets the current one
// without any network call.
//
// Every login, logout and forced teardown bumps an epoch. A refresh result
// is applied only if the epoch it started under is still current, so a
// logout racing an in-flight refresh always wins. Teardown after a failed
// refresh happens at most once per epoch, which makes EventExpired fire once
// no matter how many requests failed together.
//
// # Phases
//
//	Authorized ──401──▶ AwaitingRefresh ──ok──▶ Authorized
//	                          │
//	                          └──fail──▶ Rejected ──login──▶ Authorized
package session

package cypher

import "context"

// Driver is the minimal contract the adapter needs from a Cypher-capable
// remote graph server: open a session-scoped connection, run a statement in
// the canonical dialect (§4.2), and report liveness. No concrete Bolt/Cypher
// client library is vendored here — any driver satisfying this interface
// (a real one, wired in by the host application) can back the adapter; see
// the grounding ledger for why this boundary is drawn here rather than lower.
type Driver interface {
	// Dial opens a connection to the given DSN, authenticating with the
	// supplied credentials, and returns a live Session.
	Dial(ctx context.Context, dsn, username, password string) (Session, error)
}

// Session executes statements against one underlying connection. Callers
// never hold a Session across a pool acquisition boundary; the Pool returns
// it to the idle set (or closes it, once expired) after each use.
type Session interface {
	// Run executes a single statement in the canonical dialect and returns
	// its result rows as an ordered sequence of column→value mappings.
	Run(ctx context.Context, statement string, params map[string]interface{}, write bool) ([]map[string]interface{}, error)
	// Ping verifies the underlying connection is still usable.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

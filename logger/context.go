package logger

// identityKeys are the bound-context keys that additionally override the
// derived logger's service identity.
const (
	serviceKey     = "service"
	environmentKey = "environment"
	versionKey     = "version"
)

// With returns a derived logger that merges ctx underneath the per-call
// metadata of every subsequent call; per-call keys win on conflict. Binding
// is composable and rightmost-wins across repeated With calls. The receiver
// is never modified and shares no mutable state with the derived logger
// beyond the sink connection and its submission tracker.
//
// Identity keys (service, environment, version) present in ctx with string
// values override the derived logger's identity for its own calls and any
// further derivations; they never reach back to the parent.
func (l *ShipLogger) With(ctx Fields) Logger {
	child := *l

	// Independent threshold seeded from the parent's current value, so a
	// later SetLevel on either side leaves the other untouched.
	child.minLevel = newLevelVar(Level(l.minLevel.Load()))

	bound := make(Fields, len(l.bound)+len(ctx))
	for k, v := range l.bound {
		bound[k] = v
	}
	for k, v := range ctx {
		bound[k] = v
	}
	child.bound = bound

	if s, ok := bound[serviceKey].(string); ok && s != "" {
		child.identity.Service = s
	}
	if e, ok := bound[environmentKey].(string); ok && e != "" {
		child.identity.Environment = e
	}
	if v, ok := bound[versionKey].(string); ok && v != "" {
		child.identity.Version = v
	}

	return &child
}

package oauth

// Redacted wraps a sensitive credential string so it cannot leak through
// logging or serialization by accident. fmt and JSON output always show
// "[REDACTED]"; the real value is only reachable through Value.
type Redacted struct {
	value string
}

// Redact wraps the given credential value.
func Redact(value string) Redacted {
	return Redacted{value: value}
}

// Value returns the wrapped credential. Call this only at the point the
// value is placed into an outgoing header or form body.
func (r Redacted) Value() string {
	return r.value
}

// IsEmpty reports whether no value is wrapped.
func (r Redacted) IsEmpty() bool {
	return r.value == ""
}

// String implements fmt.Stringer.
func (r Redacted) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (Redacted) GoString() string {
	return "oauth.Redacted{[REDACTED]}"
}

// MarshalText implements encoding.TextMarshaler.
func (Redacted) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

// MarshalJSON implements json.Marshaler.
func (Redacted) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}

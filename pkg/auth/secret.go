package auth

// Secret is a string type that redacts its value in String(), GoString(),
// and MarshalText() to prevent accidental exposure in logs, JSON output,
// or fmt.Printf. The actual value is only accessible via [Secret.Value],
// which should be called only where the raw value is truly needed (e.g.
// building a basic-auth header for the directory service).
type Secret string

// secretRedacted is the placeholder shown instead of the actual value
// when the secret is printed, formatted, or serialized.
const secretRedacted = "[REDACTED]"

// String returns the redacted placeholder, preventing the secret from
// being printed via fmt.Println, log.Printf, or similar functions.
func (s Secret) String() string { return secretRedacted }

// GoString returns the redacted placeholder, preventing the secret from
// being printed via fmt.Printf("%#v", secret).
func (s Secret) GoString() string { return secretRedacted }

// Value returns the actual secret string.
func (s Secret) Value() string { return string(s) }

// MarshalText implements [encoding.TextMarshaler], returning the redacted
// placeholder so the secret never leaks into JSON or YAML output.
func (s Secret) MarshalText() ([]byte, error) { return []byte(secretRedacted), nil }

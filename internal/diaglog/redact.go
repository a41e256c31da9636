package diaglog

// The only secrets that can reach a payload are the connection password and
// the challenge/salt/authentication triple of the Identify handshake; these
// key names are masked wherever they appear.
func sensitiveKey(key string) bool {
	switch key {
	case "password", "authentication", "challenge", "salt":
		return true
	}
	return false
}

// Redact returns a copy of v with the values of credential-bearing keys
// replaced by "[REDACTED]", descending through nested maps and slices. The
// input is never mutated. Values of types other than map/slice pass through
// unchanged.
func Redact(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		masked := make(map[string]interface{}, len(val))
		for key, inner := range val {
			if sensitiveKey(key) {
				masked[key] = "[REDACTED]"
				continue
			}
			masked[key] = Redact(inner)
		}
		return masked
	case []interface{}:
		masked := make([]interface{}, len(val))
		for i := range val {
			masked[i] = Redact(val[i])
		}
		return masked
	default:
		return v
	}
}

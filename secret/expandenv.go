package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// LookupFunc reads one variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict is ExpandEnv over the process environment.
func ExpandEnvStrict(s string) (string, error) {
	return ExpandEnv(s, os.LookupEnv)
}

// ExpandEnv substitutes ${VAR} references in s using lookup.
//
// Only the braced form is expanded, so bcrypt hashes and other bare $
// text pass through. `$${` emits a literal `${`. Every referenced variable
// must be set, otherwise the error lists the missing names.
func ExpandEnv(s string, lookup LookupFunc) (string, error) {
	parts := strings.Split(s, "$${")

	var missing []string
	for i, part := range parts {
		parts[i] = envVarPattern.ReplaceAllStringFunc(part, func(m string) string {
			key := m[2 : len(m)-1]
			v, ok := lookup(key)
			if !ok && !slices.Contains(missing, key) {
				missing = append(missing, key)
			}
			return v
		})
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("secret: missing environment variables: %s", strings.Join(missing, ", "))
	}
	return strings.Join(parts, "${"), nil
}

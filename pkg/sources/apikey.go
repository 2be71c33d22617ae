package sources

import (
	"fmt"
	"os"

	"github.com/retriever-io/retriever/pkg/source"
)

// apiKey returns the first non-empty value among the named environment
// variables, or a RemoteDataError telling the caller which variable to set.
func apiKey(sourceName string, envVars ...string) (string, error) {
	for _, env := range envVars {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
	}
	return "", &source.RemoteDataError{
		Source: sourceName,
		Reason: fmt.Sprintf("no API key found: set %s in your environment", envVars[0]),
	}
}

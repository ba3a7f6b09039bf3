package params

import (
	"fmt"

	"github.com/joho/godotenv"
)

// ParseEnvFile parses .env formatted content. Comments, quoting, export
// prefixes and ${VAR} expansion follow godotenv.
func ParseEnvFile(content []byte) (map[string]string, error) {
	values, err := godotenv.UnmarshalBytes(content)
	if err != nil {
		return nil, fmt.Errorf("invalid params file: %w", err)
	}
	return values, nil
}

// LoadEnvFiles reads each file in order; later files override earlier ones.
func LoadEnvFiles(paths ...string) (map[string]string, error) {
	result := make(map[string]string)
	for _, p := range paths {
		values, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read params file %s: %w", p, err)
		}
		for k, v := range values {
			result[k] = v
		}
	}
	return result, nil
}

package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ProjectEnvFile is read from the working directory.
const ProjectEnvFile = ".lurker.env"

// EnvPaths lists env files in load order: global, then project.
func EnvPaths() []string {
	return []string{GlobalEnvPath(), ProjectEnvFile}
}

// LoadEnvFiles merges KEY=VALUE files into the process environment and
// returns the keys it set, sorted. Later files win over earlier ones; keys
// already present in the real environment are never touched. Missing or
// malformed files are skipped.
func LoadEnvFiles(paths ...string) []string {
	merged := make(map[string]string)
	for _, p := range paths {
		mergeEnvFile(merged, p)
	}

	var applied []string
	for k, v := range merged {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err == nil {
			applied = append(applied, k)
		}
	}
	slices.Sort(applied)
	return applied
}

func mergeEnvFile(dst map[string]string, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	envs, err := ParseEnvFile(data)
	if err != nil {
		return
	}
	for k, v := range envs {
		dst[k] = v
	}
}

// ParseEnvFile parses KEY=VALUE lines from data. Blank lines and # comments
// are skipped, an "export " prefix is allowed, and double-quoted values are
// unquoted with Go escape rules.
func ParseEnvFile(data []byte) (map[string]string, error) {
	result := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '=' in %q", lineNum, line)
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNum)
		}

		switch {
		case len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"':
			uq, err := strconv.Unquote(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad quoted value for %s: %w", lineNum, k, err)
			}
			v = uq
		case len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'':
			v = v[1 : len(v)-1]
		}
		result[k] = v
	}
	return result, scanner.Err()
}

// GlobalEnvPath returns the path to the global lurker env file.
func GlobalEnvPath() string {
	return filepath.Join(configDir(), "env")
}

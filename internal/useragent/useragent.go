// Package useragent holds the process-wide, read-only list of browser
// identities used when fetching from third-party origins. The list is
// embedded and loaded once; it is never mutated at runtime.
package useragent

import (
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

//go:embed agents.json
var agentFS embed.FS

// Agent is one browser identity.
type Agent struct {
	UserAgent  string `json:"user_agent"`
	OSType     string `json:"os_type"`
	DeviceType string `json:"device_type"`
}

// Filter selects agents by attribute; empty fields match anything.
type Filter struct {
	OSType     string
	DeviceType string
}

var (
	loadOnce sync.Once
	agents   []Agent
	loadErr  error
)

func load() ([]Agent, error) {
	loadOnce.Do(func() {
		data, err := agentFS.ReadFile("agents.json")
		if err != nil {
			loadErr = fmt.Errorf("read agent list: %w", err)
			return
		}
		if err := json.Unmarshal(data, &agents); err != nil {
			loadErr = fmt.Errorf("parse agent list: %w", err)
		}
	})
	return agents, loadErr
}

// Default returns the fixed desktop browser identity the fetch client
// pins for image retrieval.
func Default() string {
	return "Mozilla/5.0 (Windows NT 6.3; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/42.0.2311.152 Safari/537.36"
}

// Random picks a uniformly random agent matching the filter.
func Random(f Filter) (string, error) {
	list, err := load()
	if err != nil {
		return "", err
	}
	matched := make([]Agent, 0, len(list))
	for _, a := range list {
		if f.OSType != "" && !strings.EqualFold(a.OSType, f.OSType) {
			continue
		}
		if f.DeviceType != "" && !strings.EqualFold(a.DeviceType, f.DeviceType) {
			continue
		}
		matched = append(matched, a)
	}
	if len(matched) == 0 {
		return "", fmt.Errorf("no user agents matched the filter")
	}
	return matched[rand.Intn(len(matched))].UserAgent, nil
}

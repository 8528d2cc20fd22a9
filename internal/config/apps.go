package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// LoadApps reads an app list file: an array of {app_name, app_id} objects.
// JSON5 syntax (comments, trailing commas) is accepted.
func LoadApps(path string) ([]App, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read app list %s: %w", path, err)
	}

	var raw []map[string]interface{}
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse app list %s: %w", path, err)
	}

	apps, err := ParseApps(raw)
	if err != nil {
		return nil, fmt.Errorf("app list %s: %w", path, err)
	}
	return apps, nil
}

// ParseApps converts decoded app descriptors into Apps. app_id may be given
// as a number or as a string.
func ParseApps(raw []map[string]interface{}) ([]App, error) {
	apps := make([]App, 0, len(raw))
	for i, entry := range raw {
		name, _ := entry["app_name"].(string)
		id, err := appID(entry["app_id"])
		if err != nil {
			return nil, fmt.Errorf("app at index %d: %w", i, err)
		}

		app := App{AppName: name, AppID: id}
		if err := Validate(app); err != nil {
			return nil, fmt.Errorf("app at index %d: %w", i, err)
		}
		apps = append(apps, app)
	}
	return apps, nil
}

func appID(v interface{}) (string, error) {
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case json.Number:
		return id.String(), nil
	default:
		return "", fmt.Errorf("unsupported app_id type %T", v)
	}
}

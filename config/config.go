package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuhk-timetable/telemetry"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

const DefaultPath = "cuhk-timetable.json5"

type Term struct {
	// Start and End are YYYY-MM-DD.
	Start  string `json:"start"`
	End    string `json:"end"`
	Strict bool   `json:"strict"`
}

type Browser struct {
	Headless       bool `json:"headless"`
	TimeoutSeconds int  `json:"timeout_seconds"`
}

type Google struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURL  string `json:"redirect_url"`
	CalendarID   string `json:"calendar_id"`
	TokenFile    string `json:"token_file"`
}

type GitHub struct {
	Token   string `json:"token"`
	Repo    string `json:"repo"`
	Path    string `json:"path"`
	Branch  string `json:"branch"`
	Message string `json:"message"`
}

type Config struct {
	Output      string           `json:"output"`
	Format      string           `json:"format"`
	Term        Term             `json:"term"`
	SubjectHint string           `json:"subject_hint"`
	Selected    []string         `json:"selected"`
	TeachingURL string           `json:"teaching_url"`
	CUSISURL    string           `json:"cusis_url"`
	Browser     Browser          `json:"browser"`
	Google      Google           `json:"google"`
	GitHub      GitHub           `json:"github"`
	Telemetry   telemetry.Config `json:"telemetry"`
}

func Default() Config {
	return Config{
		Output:      "cuhk_timetable",
		Format:      "ics",
		TeachingURL: "https://rgsntl.rgs.cuhk.edu.hk/rws_prd_applx2/Public/tt_dsp_timetable.aspx",
		CUSISURL:    "https://cusis.cuhk.edu.hk/",
		Browser: Browser{
			TimeoutSeconds: 30,
		},
		Google: Google{
			RedirectURL: "http://localhost:8080",
			CalendarID:  "primary",
			TokenFile:   "token.json",
		},
		GitHub: GitHub{
			Message: "Update timetable",
		},
	}
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalPath is the override file read next to path: "<name>.local.<ext>".
func LocalPath(path string) string {
	prefix, ext := splitExt(filepath.Base(path))
	return filepath.Join(filepath.Dir(path), fmt.Sprintf("%s.local.%s", prefix, ext))
}

// Load merges, in increasing priority, the defaults, the file at path and
// its local override. Missing files are skipped.
func Load(path string) (Config, error) {
	out := Default()

	for _, file := range []string{path, LocalPath(path)} {
		layer, found, err := readLayer(file)
		if err != nil {
			return Config{}, err
		}
		if !found {
			continue
		}
		if err := mergo.Merge(&out, layer, mergo.WithOverride); err != nil {
			return Config{}, fmt.Errorf("merge config %s: %w", file, err)
		}
		slog.Debug("config layer loaded", "file", file)
	}
	return out, nil
}

func readLayer(file string) (Config, bool, error) {
	var layer Config
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return layer, false, nil
	}
	if err != nil {
		return layer, false, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return layer, false, nil
	}
	if err := json5.Unmarshal(data, &layer); err != nil {
		return layer, false, fmt.Errorf("parse config %s: %w", file, err)
	}
	return layer, true, nil
}

/*
Package config loads process configuration and the statutory cap table.

SOURCES (later wins):
  1. Built-in defaults
  2. .env file in the working directory (optional)
  3. Environment variables
  4. Command-line flags, applied by cmd/server

ENVIRONMENT:
  PORT            HTTP port (default 8080)
  DB_PATH         SQLite path (default transition.db, ":memory:" allowed)
  CAP_TABLE_FILE  YAML cap table; empty uses the embedded caps.yaml
  FIRM_NAME       Branding printed on exported documents
  REPORT_FOOTER   Footer line on exported documents
  CORS_ORIGINS    Comma separated allowed origins

CAP TABLE FORMAT:
  caps:
    2025: 98000
    2026: 102000
*/
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/workx/transition-engine/severance"
)

//go:embed caps.yaml
var defaultCaps []byte

// Config holds all configuration for the application.
type Config struct {
	Port         int
	DBPath       string
	CapTableFile string
	FirmName     string
	ReportFooter string
	CORSOrigins  []string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// A missing .env is normal in production.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	port, err := strconv.Atoi(get("PORT", "8080"))
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("invalid PORT %q", getenv("PORT"))
	}

	return &Config{
		Port:         port,
		DBPath:       get("DB_PATH", "transition.db"),
		CapTableFile: get("CAP_TABLE_FILE", ""),
		FirmName:     get("FIRM_NAME", "Workx advocaten"),
		ReportFooter: get("REPORT_FOOTER", "Deze berekening is indicatief en vormt geen juridisch advies."),
		CORSOrigins:  splitList(get("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// =============================================================================
// CAP TABLE
// =============================================================================

type capFile struct {
	Caps map[int]capAmount `yaml:"caps"`
}

// capAmount decodes a YAML scalar straight into a decimal, never via float64.
type capAmount struct {
	decimal.Decimal
}

func (a *capAmount) UnmarshalYAML(node *yaml.Node) error {
	d, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: cap %q is not a number", node.Line, node.Value)
	}
	a.Decimal = d
	return nil
}

// LoadCapTable reads path, or the embedded default table when path is empty.
func LoadCapTable(path string) (severance.CapTable, error) {
	data := defaultCaps
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return severance.CapTable{}, fmt.Errorf("read cap table: %w", err)
		}
	}
	return ParseCapTable(data)
}

// ParseCapTable decodes the YAML cap table. An empty table is rejected.
func ParseCapTable(data []byte) (severance.CapTable, error) {
	var f capFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return severance.CapTable{}, fmt.Errorf("parse cap table: %w", err)
	}
	if len(f.Caps) == 0 {
		return severance.CapTable{}, fmt.Errorf("parse cap table: no years configured")
	}

	caps := make(map[int]decimal.Decimal, len(f.Caps))
	for year, amount := range f.Caps {
		caps[year] = amount.Decimal
	}
	table, err := severance.NewCapTable(caps)
	if err != nil {
		return severance.CapTable{}, fmt.Errorf("parse cap table: %w", err)
	}
	return table, nil
}

package region

import (
	"embed"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Subdivision tracking is limited to a fixed allow-list of countries. Other
// countries resolve to country-level only.
//
//go:embed tables/*.yaml
var tablesFS embed.FS

// subdivisionTables maps country code -> normalized admin-area name ->
// ISO 3166-2 code, loaded from the embedded YAML tables at init.
var subdivisionTables = loadTables()

// HasSubdivisions reports whether the country is on the tracked allow-list.
func HasSubdivisions(countryCode string) bool {
	_, ok := subdivisionTables[strings.ToUpper(countryCode)]
	return ok
}

// SubdivisionCode maps an administrative-area name to its canonical ISO
// 3166-2 code. Unknown names fall back to the raw name as the code; this is
// lossy but tolerated so unrecognized provinces still dedup consistently.
func SubdivisionCode(countryCode, adminName string) string {
	table, ok := subdivisionTables[strings.ToUpper(countryCode)]
	if !ok {
		return ""
	}
	if code, ok := table[normalizeName(adminName)]; ok {
		return code
	}
	return adminName
}

// normalizeName folds case and strips diacritics so "Québec" and "quebec"
// hit the same table entry.
func normalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.TrimSpace(cases.Fold().String(folded))
}

func loadTables() map[string]map[string]string {
	out := make(map[string]map[string]string)

	entries, err := tablesFS.ReadDir("tables")
	if err != nil {
		zap.L().Error("region: read embedded tables", zap.Error(err))
		return out
	}
	for _, e := range entries {
		cc := strings.ToUpper(strings.TrimSuffix(e.Name(), ".yaml"))
		data, err := tablesFS.ReadFile("tables/" + e.Name())
		if err != nil {
			zap.L().Error("region: read table", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		var raw map[string]string
		if err := yaml.Unmarshal(data, &raw); err != nil {
			zap.L().Error("region: parse table",
				zap.String("file", e.Name()),
				zap.Error(eris.Wrap(err, "unmarshal")),
			)
			continue
		}
		table := make(map[string]string, len(raw))
		for name, code := range raw {
			table[normalizeName(name)] = code
		}
		out[cc] = table
	}
	return out
}

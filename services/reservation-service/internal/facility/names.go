// Package facility maps the facility names stored upstream to the stable
// codes used by the map and the availability engine.
package facility

type entry struct {
	displayName string
	code        string
}

// table is ordered; DisplayNameFor returns the first display name of a code.
var table = []entry{
	{"Cancha de básquetbol # 1", "Basketball N1"},
	{"Cancha de básquetbol # 2", "Basketball N2"},
	{"Cancha de básquetbol # 3", "Basketball N3"},
	{"Cancha de voleibol # 1", "Voleyball N1"},
	{"Cancha de voleibol # 2", "Voleyball N2"},
	{"Cancha de voleibol # 3", "Voleyball N3"},
	{"Cancha de voleibol de playa", "Voleyplaya"},
	{"Cancha de fútbol 11", "Futbol 11"},
	{"Piscina semiolímpica", "Piscina"},
	{"Piscina", "Piscina"},
	{"Gimnasio", "Gimnasio"},
	{"Estadio Universitario", "Estadio"},
	{"Estadio", "Estadio"},
	{"Pista atlética", "Pista atlética"},
	{"Bloque Q", "Bloque Q"},
}

var byDisplayName = func() map[string]string {
	m := make(map[string]string, len(table))
	for _, e := range table {
		m[e.displayName] = e.code
	}
	return m
}()

// CodeFor returns the code for a known display name. Unknown names are
// treated as codes already and returned unchanged.
func CodeFor(displayName string) string {
	if code, ok := byDisplayName[displayName]; ok {
		return code
	}
	return displayName
}

// DisplayNameFor returns the first display name mapping to code, or code itself.
func DisplayNameFor(code string) string {
	for _, e := range table {
		if e.code == code {
			return e.displayName
		}
	}
	return code
}

// Codes lists the distinct known codes in table order.
func Codes() []string {
	seen := make(map[string]struct{}, len(table))
	out := make([]string, 0, len(table))
	for _, e := range table {
		if _, ok := seen[e.code]; ok {
			continue
		}
		seen[e.code] = struct{}{}
		out = append(out, e.code)
	}
	return out
}

// Known reports whether code belongs to the table.
func Known(code string) bool {
	for _, e := range table {
		if e.code == code {
			return true
		}
	}
	return false
}

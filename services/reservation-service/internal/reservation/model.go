package reservation

import "time"

// NotRegistered is the upstream sentinel for an empty optional label.
const NotRegistered = "NO REGISTRA"

// Named is the {id, nombre} shape upstream uses for every lookup table.
type Named struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

// Record is one reservation as served by the upstream API.
type Record struct {
	ID          int64  `json:"id"`
	Area        Named  `json:"area"`
	Disciplina  Named  `json:"disciplina"`
	Carrera     Named  `json:"carrera"`
	Modalidad   Named  `json:"modalidad"`
	Perfil      Named  `json:"perfil"`
	Responsable string `json:"responsable"`
	Cedula      string `json:"cedula"`
	Fecha       string `json:"fecha_reserva"`
	HoraInicio  string `json:"hora_inicio"`
	HoraFin     string `json:"hora_fin"`
	Actividad   string `json:"actividad"`
}

// Reservation is a normalized record. It is never mutated after Normalize;
// the whole list is replaced on every poll.
type Reservation struct {
	ID           int64     `json:"id"`
	FacilityCode string    `json:"facility_code"`
	FacilityName string    `json:"facility_name"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Responsible  string    `json:"responsible"`
	IDDocument   string    `json:"id_document"`
	Activity     string    `json:"activity"`
	Profile      string    `json:"profile,omitempty"`
	Discipline   string    `json:"discipline,omitempty"`
	Career       string    `json:"career,omitempty"`
	Modality     string    `json:"modality,omitempty"`
}

// Covers reports whether t falls in [Start, End).
func (r Reservation) Covers(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Label blanks the "not registered" sentinel for display.
func Label(value string) string {
	if value == NotRegistered {
		return ""
	}
	return value
}

// Package storage reads reservations straight from the upstream database for
// deployments that share it. Access is read-only.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/unemi/sportsmap/libs/db"
	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
)

// Optional lookups missing in the database come back as the upstream
// "not registered" sentinel, the same as the REST API serves them.
const listReservations = `
	SELECT
		r.id,
		a.id AS area_id,
		a.nombre AS area_nombre,
		COALESCE(d.id, 0) AS disciplina_id,
		COALESCE(d.nombre, $1) AS disciplina_nombre,
		COALESCE(c.id, 0) AS carrera_id,
		COALESCE(c.nombre, $1) AS carrera_nombre,
		COALESCE(m.id, 0) AS modalidad_id,
		COALESCE(m.nombre, $1) AS modalidad_nombre,
		COALESCE(p.id, 0) AS perfil_id,
		COALESCE(p.nombre, $1) AS perfil_nombre,
		COALESCE(r.responsable, '') AS responsable,
		COALESCE(r.cedula, '') AS cedula,
		to_char(r.fecha_reserva, 'YYYY-MM-DD') AS fecha_reserva,
		to_char(r.hora_inicio, 'HH24:MI:SS') AS hora_inicio,
		to_char(r.hora_fin, 'HH24:MI:SS') AS hora_fin,
		COALESCE(r.actividad, '') AS actividad
	FROM reserva r
	JOIN area a ON a.id = r.area_id
	LEFT JOIN disciplina d ON d.id = r.disciplina_id
	LEFT JOIN carrera c ON c.id = r.carrera_id
	LEFT JOIN modalidad m ON m.id = r.modalidad_id
	LEFT JOIN perfil p ON p.id = r.perfil_id
	ORDER BY r.id
`

type reservaRow struct {
	ID               int64  `db:"id"`
	AreaID           int64  `db:"area_id"`
	AreaNombre       string `db:"area_nombre"`
	DisciplinaID     int64  `db:"disciplina_id"`
	DisciplinaNombre string `db:"disciplina_nombre"`
	CarreraID        int64  `db:"carrera_id"`
	CarreraNombre    string `db:"carrera_nombre"`
	ModalidadID      int64  `db:"modalidad_id"`
	ModalidadNombre  string `db:"modalidad_nombre"`
	PerfilID         int64  `db:"perfil_id"`
	PerfilNombre     string `db:"perfil_nombre"`
	Responsable      string `db:"responsable"`
	Cedula           string `db:"cedula"`
	FechaReserva     string `db:"fecha_reserva"`
	HoraInicio       string `db:"hora_inicio"`
	HoraFin          string `db:"hora_fin"`
	Actividad        string `db:"actividad"`
}

func (r reservaRow) record() reservation.Record {
	return reservation.Record{
		ID:          r.ID,
		Area:        reservation.Named{ID: r.AreaID, Nombre: r.AreaNombre},
		Disciplina:  reservation.Named{ID: r.DisciplinaID, Nombre: r.DisciplinaNombre},
		Carrera:     reservation.Named{ID: r.CarreraID, Nombre: r.CarreraNombre},
		Modalidad:   reservation.Named{ID: r.ModalidadID, Nombre: r.ModalidadNombre},
		Perfil:      reservation.Named{ID: r.PerfilID, Nombre: r.PerfilNombre},
		Responsable: r.Responsable,
		Cedula:      r.Cedula,
		Fecha:       r.FechaReserva,
		HoraInicio:  r.HoraInicio,
		HoraFin:     r.HoraFin,
		Actividad:   r.Actividad,
	}
}

type PostgresSource struct {
	pool *db.Pool
}

func NewPostgresSource(pool *db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) Fetch(ctx context.Context) ([]reservation.Record, error) {
	rows, err := s.pool.Query(ctx, listReservations, reservation.NotRegistered)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[reservaRow])
	if err != nil {
		return nil, fmt.Errorf("scan reservations: %w", err)
	}
	out := make([]reservation.Record, 0, len(found))
	for _, row := range found {
		out = append(out, row.record())
	}
	return out, nil
}

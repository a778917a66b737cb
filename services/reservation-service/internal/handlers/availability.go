package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/unemi/sportsmap/libs/httpx"
	"github.com/unemi/sportsmap/services/reservation-service/internal/availability"
	"github.com/unemi/sportsmap/services/reservation-service/internal/calendar"
	"github.com/unemi/sportsmap/services/reservation-service/internal/facility"
	"github.com/unemi/sportsmap/services/reservation-service/internal/pan"
	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
	"github.com/unemi/sportsmap/services/reservation-service/internal/snapshot"
)

// Snapshots exposes the current reservation snapshot.
type Snapshots interface {
	Current() *snapshot.Snapshot
	Reservations() []reservation.Reservation
}

type AvailabilityHandler struct {
	store Snapshots
	loc   *time.Location
	now   func() time.Time
}

func NewAvailabilityHandler(store Snapshots, loc *time.Location) *AvailabilityHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AvailabilityHandler{store: store, loc: loc, now: time.Now}
}

type facilityItem struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

type slotItem struct {
	Start          string                   `json:"start"`
	End            string                   `json:"end"`
	Status         availability.Status      `json:"status"`
	Disabled       bool                     `json:"disabled,omitempty"`
	Reservation    *reservation.Reservation `json:"reservation,omitempty"`
	OverlappingIDs []int64                  `json:"overlapping_ids,omitempty"`
}

type dayItem struct {
	Date  string     `json:"date"`
	Today bool       `json:"today,omitempty"`
	Slots []slotItem `json:"slots"`
}

type monthCellItem struct {
	Date     string              `json:"date"`
	Status   availability.Status `json:"status"`
	InMonth  bool                `json:"in_month"`
	Past     bool                `json:"past"`
	Today    bool                `json:"today,omitempty"`
	Disabled bool                `json:"disabled"`
}

type facilityStatusItem struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Reserved    bool   `json:"reserved"`
}

type mapSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Facilities lists every known code, then any code seen only in the data.
func (h *AvailabilityHandler) Facilities(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"facilities": h.facilities()})
}

func (h *AvailabilityHandler) facilities() []facilityItem {
	var items []facilityItem
	for _, code := range facility.Codes() {
		items = append(items, facilityItem{Code: code, DisplayName: facility.DisplayNameFor(code)})
	}
	var extra []string
	seen := map[string]bool{}
	for _, res := range h.store.Reservations() {
		if facility.Known(res.FacilityCode) || seen[res.FacilityCode] {
			continue
		}
		seen[res.FacilityCode] = true
		extra = append(extra, res.FacilityCode)
	}
	sort.Strings(extra)
	for _, code := range extra {
		items = append(items, facilityItem{Code: code, DisplayName: code})
	}
	return items
}

func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	startHour, ok := hourParam(w, r, "start_hour", availability.DefaultStartHour)
	if !ok {
		return
	}
	endHour, ok := hourParam(w, r, "end_hour", availability.DefaultEndHour)
	if !ok {
		return
	}
	if endHour <= startHour {
		http.Error(w, "end_hour must be after start_hour", http.StatusBadRequest)
		return
	}

	slots := availability.HourlySlots(code, date, h.store.Reservations(), startHour, endHour)
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, toSlotItem(s, false))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"facility": code,
		"date":     date.Format(time.DateOnly),
		"slots":    items,
	})
}

func (h *AvailabilityHandler) DayStatus(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	all := h.store.Reservations()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"facility":         code,
		"date":             date.Format(time.DateOnly),
		"status":           availability.DayStatus(code, date, all),
		"reserved_minutes": int(availability.ReservedMinutes(code, date, all) / time.Minute),
	})
}

func (h *AvailabilityHandler) ThreeDay(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	days := calendar.ThreeDay(code, date, h.store.Reservations(), h.now().In(h.loc))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"facility": code, "days": toDayItems(days)})
}

func (h *AvailabilityHandler) Week(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	days := calendar.Week(code, date, h.store.Reservations(), h.now().In(h.loc))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"facility": code, "days": toDayItems(days)})
}

func (h *AvailabilityHandler) Month(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	m := calendar.MonthOf(code, date, h.store.Reservations(), h.now().In(h.loc))
	cells := make([]monthCellItem, 0, len(m.Cells))
	for _, c := range m.Cells {
		cells = append(cells, monthCellItem{
			Date:     c.Date.Format(time.DateOnly),
			Status:   c.Status,
			InMonth:  c.InMonth,
			Past:     c.Past,
			Today:    c.Today,
			Disabled: c.Disabled(),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"facility":        code,
		"month":           m.First.Format("2006-01"),
		"can_go_previous": m.CanGoPrevious,
		"days":            cells,
	})
}

// parseInstant reads an RFC3339 time. An unescaped "+" offset arrives from
// the query string as a space and is put back.
func parseInstant(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.ReplaceAll(raw, " ", "+"))
}

// MapStatus reports which facilities are reserved at one instant, and the
// pan bounds for the caller's viewport when its size is given.
func (h *AvailabilityHandler) MapStatus(w http.ResponseWriter, r *http.Request) {
	at := h.now().In(h.loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
		parsed, err := parseInstant(raw)
		if err != nil {
			http.Error(w, "invalid at", http.StatusBadRequest)
			return
		}
		at = parsed.In(h.loc)
	}

	all := h.store.Reservations()
	var items []facilityStatusItem
	for _, f := range h.facilities() {
		items = append(items, facilityStatusItem{
			Code:        f.Code,
			DisplayName: f.DisplayName,
			Reserved:    availability.IsReservedAt(f.Code, at, all),
		})
	}
	resp := map[string]any{
		"at":         at.Format(time.RFC3339),
		"facilities": items,
		"map":        mapSize{Width: pan.MapWidth, Height: pan.MapHeight},
	}

	q := r.URL.Query()
	if q.Get("view_width") != "" || q.Get("view_height") != "" {
		vw, err1 := strconv.ParseFloat(q.Get("view_width"), 64)
		vh, err2 := strconv.ParseFloat(q.Get("view_height"), 64)
		if err1 != nil || err2 != nil || vw <= 0 || vh <= 0 {
			http.Error(w, "view_width and view_height must be positive numbers", http.StatusBadRequest)
			return
		}
		resp["bounds"] = pan.BoundsFor(vw, vh, pan.MapWidth, pan.MapHeight)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AvailabilityHandler) Reservation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid reservation id", http.StatusBadRequest)
		return
	}
	snap := h.store.Current()
	if snap == nil {
		http.Error(w, "reservations not loaded yet", http.StatusServiceUnavailable)
		return
	}
	res, ok := snap.Find(id)
	if !ok {
		http.Error(w, "reservation not found", http.StatusNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, forDisplay(res))
}

func (h *AvailabilityHandler) dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return h.now().In(h.loc), true
	}
	d, err := time.ParseInLocation(time.DateOnly, raw, h.loc)
	if err != nil {
		http.Error(w, "invalid date (want YYYY-MM-DD)", http.StatusBadRequest)
		return time.Time{}, false
	}
	return d, true
}

func hourParam(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, true
	}
	h, err := strconv.Atoi(raw)
	if err != nil || h < 0 || h > 24 {
		http.Error(w, "invalid "+key, http.StatusBadRequest)
		return 0, false
	}
	return h, true
}

func toSlotItem(s availability.Slot, disabled bool) slotItem {
	item := slotItem{
		Start:    s.Start.Format(time.RFC3339),
		End:      s.End.Format(time.RFC3339),
		Status:   s.Status,
		Disabled: disabled,
	}
	if s.Reservation != nil {
		res := forDisplay(*s.Reservation)
		item.Reservation = &res
	}
	for _, o := range s.Overlapping {
		item.OverlappingIDs = append(item.OverlappingIDs, o.ID)
	}
	return item
}

func toDayItems(days []calendar.Day) []dayItem {
	out := make([]dayItem, 0, len(days))
	for _, d := range days {
		item := dayItem{Date: d.Date.Format(time.DateOnly), Today: d.Today}
		for _, c := range d.Cells {
			item.Slots = append(item.Slots, toSlotItem(c.Slot, c.Disabled))
		}
		out = append(out, item)
	}
	return out
}

// forDisplay blanks the "not registered" labels.
func forDisplay(r reservation.Reservation) reservation.Reservation {
	r.Profile = reservation.Label(r.Profile)
	r.Discipline = reservation.Label(r.Discipline)
	r.Career = reservation.Label(r.Career)
	r.Modality = reservation.Label(r.Modality)
	return r
}

package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travel-journal/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "trip_name", "trip_start_date", "trip_end_date",
	"visit_order", "place_name", "latitude", "longitude",
	"arrival_date", "departure_date", "note", "alert_active",
}

// ExportRow is one line of GET /export. Place fields are absent for a trip
// without places.
type ExportRow struct {
	TripId        uuid.UUID           `json:"trip_id"`
	TripName      string              `json:"trip_name"`
	TripStartDate *openapi_types.Date `json:"trip_start_date,omitempty"`
	TripEndDate   *openapi_types.Date `json:"trip_end_date,omitempty"`
	VisitOrder    *int                `json:"visit_order,omitempty"`
	PlaceName     *string             `json:"place_name,omitempty"`
	Latitude      *float64            `json:"latitude,omitempty"`
	Longitude     *float64            `json:"longitude,omitempty"`
	ArrivalDate   *time.Time          `json:"arrival_date,omitempty"`
	DepartureDate *time.Time          `json:"departure_date,omitempty"`
	Note          *string             `json:"note,omitempty"`
	AlertActive   bool                `json:"alert_active"`
}

// GetExport handles GET /export.
// It returns a flat table of every trip and its places in visit order.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := queryParam(r, "format", &format); err != nil {
		requestError(w, err)
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		s.writeError(w, r, "export", err)
		return
	}

	if format != nil && *format == "csv" {
		writeCSV(w, rows)
		return
	}
	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, domainRowToResponse(row))
	}
	writeJSON(w, http.StatusOK, out)
}

func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="travel-journal.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write(buf.Bytes())
}

func domainRowToResponse(r domain.ExportRow) ExportRow {
	tripID, _ := uuid.Parse(r.TripID)
	row := ExportRow{
		TripId:        tripID,
		TripName:      r.TripName,
		TripStartDate: parseDate(r.TripStartDate),
		TripEndDate:   parseDate(r.TripEndDate),
		ArrivalDate:   r.ArrivalDate,
		DepartureDate: r.DepartureDate,
		AlertActive:   r.AlertActive,
	}
	if r.PlaceName != "" {
		row.VisitOrder = &r.VisitOrder
		row.PlaceName = &r.PlaceName
		row.Latitude = &r.Latitude
		row.Longitude = &r.Longitude
	}
	if r.Note != "" {
		row.Note = &r.Note
	}
	return row
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// Nil time pointers and the place columns of a trip without places are empty.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	order, lat, lng := "", "", ""
	if r.PlaceName != "" {
		order = strconv.Itoa(r.VisitOrder)
		lat = strconv.FormatFloat(r.Latitude, 'f', -1, 64)
		lng = strconv.FormatFloat(r.Longitude, 'f', -1, 64)
	}
	return []string{
		r.TripID,
		r.TripName,
		r.TripStartDate,
		r.TripEndDate,
		order,
		r.PlaceName,
		lat,
		lng,
		formatOptionalTime(r.ArrivalDate),
		formatOptionalTime(r.DepartureDate),
		r.Note,
		strconv.FormatBool(r.AlertActive),
	}
}

// parseDate turns a service-formatted "2006-01-02" string into a Date; empty
// or malformed input yields nil.
func parseDate(s string) *openapi_types.Date {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &openapi_types.Date{Time: t}
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

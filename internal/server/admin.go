package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tournevent/myparcel/internal/consignment"
	"github.com/tournevent/myparcel/internal/store"
	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.consignments.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": consignment.NewSettingsView(settings)})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := consignment.ParseSettingsInput(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	settings, err := s.consignments.UpdateSettings(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": consignment.NewSettingsView(settings)})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.consignments.TestConnection(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListConsignments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	filter := store.ConsignmentFilter{
		Status:  q.Get("status"),
		Carrier: q.Get("carrier"),
		OrderID: q.Get("order_id"),
	}

	page, err := s.consignments.ListConsignments(r.Context(), filter, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleOrderConsignment(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.RetrieveOrder(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.consignments.ConsignmentForOrder(r.Context(), order)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := consignment.ParseExportInput(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	order, err := s.orders.RetrieveOrder(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.consignments.ExportOrder(r.Context(), order, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"consignment": c})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	c, err := s.consignments.ForOrder(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err = s.consignments.RegisterConsignment(r.Context(), c.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"consignment": c})
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	c, err := s.consignments.ForOrder(r.Context(), orderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var opts consignment.LabelOptions
	if f, ok := carrier.ParseLabelFormat(r.URL.Query().Get("format")); ok {
		opts.Format = f
	}
	if pos, err := strconv.Atoi(r.URL.Query().Get("position")); err == nil && carrier.ValidPosition(pos) {
		opts.Position = pos
	}

	pdf, _, err := s.consignments.GetLabel(r.Context(), c.ID, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=label-%s-%s.pdf", orderID, c.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// handleReturnLabel emails a return label to the order's customer unless the
// body names another recipient.
func (s *Server) handleReturnLabel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	body, err := decodeBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	order, err := s.orders.RetrieveOrder(r.Context(), orderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.consignments.ForOrder(r.Context(), orderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	email := jsonmap.StringAt(body, "email")
	if email == "" {
		email = strings.TrimSpace(order.Email)
	}
	if email == "" {
		s.writeError(w, r, carrier.ErrInvalidInput.Withf("Order email is missing"))
		return
	}
	name := jsonmap.StringAt(body, "name")
	if name == "" {
		name = order.ShippingAddress.FullName()
	}

	c, err = s.consignments.EmailReturnLabel(r.Context(), c.ID, email, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"consignment": c})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := s.consignments.ForOrder(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err = s.consignments.RefreshTrackTrace(r.Context(), c.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"consignment": c})
}

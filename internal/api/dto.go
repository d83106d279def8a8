package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billing-admin-backend/internal/alert"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/store"
)

// money converts an amount for the response, rounded to two places.
func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

type pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
}

func paginationOf[T any](p store.Page[T]) pagination {
	return pagination{
		CurrentPage:  p.Page.Page,
		TotalPages:   p.TotalPages(),
		TotalItems:   p.Total,
		ItemsPerPage: p.Page.Limit,
	}
}

type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

func userDTO(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

type machineResponse struct {
	ID                uuid.UUID           `json:"id"`
	UserID            uuid.UUID           `json:"user_id"`
	Name              string              `json:"name"`
	Location          string              `json:"location"`
	Username          string              `json:"username"`
	Status            model.MachineStatus `json:"status"`
	LastSync          *time.Time          `json:"last_sync"`
	OnlineCollection  float64             `json:"online_collection"`
	OfflineCollection float64             `json:"offline_collection"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func machineDTO(m *model.Machine) machineResponse {
	return machineResponse{
		ID:                m.ID,
		UserID:            m.UserID,
		Name:              m.Name,
		Location:          m.Location,
		Username:          m.Username,
		Status:            m.Status,
		LastSync:          m.LastSync,
		OnlineCollection:  money(m.OnlineCollection),
		OfflineCollection: money(m.OfflineCollection),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

type serviceResponse struct {
	ID          uuid.UUID           `json:"id"`
	MachineID   uuid.UUID           `json:"machine_id"`
	MachineName string              `json:"machine_name,omitempty"`
	Name        string              `json:"name"`
	Price       float64             `json:"price"`
	Status      model.ServiceStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func serviceDTO(s *model.Service) serviceResponse {
	return serviceResponse{
		ID:        s.ID,
		MachineID: s.MachineID,
		Name:      s.Name,
		Price:     money(s.Price),
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func serviceDTOs(services []model.Service) []serviceResponse {
	out := make([]serviceResponse, len(services))
	for i := range services {
		out[i] = serviceDTO(&services[i])
	}
	return out
}

type historyResponse struct {
	ID        uuid.UUID         `json:"id"`
	MachineID uuid.UUID         `json:"machine_id"`
	ServiceID *uuid.UUID        `json:"service_id"`
	Action    string            `json:"action"`
	Details   string            `json:"details"`
	UserName  string            `json:"user_name"`
	Type      model.HistoryType `json:"type"`
	Changes   map[string]any    `json:"changes"`
	CreatedAt time.Time         `json:"created_at"`
}

func historyDTO(h *model.CatalogHistory) historyResponse {
	return historyResponse{
		ID:        h.ID,
		MachineID: h.MachineID,
		ServiceID: h.ServiceID,
		Action:    h.Action,
		Details:   h.Details,
		UserName:  h.UserName,
		Type:      h.Type,
		Changes:   h.Changes,
		CreatedAt: h.CreatedAt,
	}
}

type paymentResponse struct {
	ID          uuid.UUID           `json:"id"`
	MachineID   uuid.UUID           `json:"machine_id"`
	MachineName string              `json:"machine_name,omitempty"`
	BillNumber  string              `json:"bill_number"`
	Amount      float64             `json:"amount"`
	Method      model.PaymentMethod `json:"method"`
	Status      model.PaymentStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

func paymentDTO(p *model.Payment, machineName string) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		MachineID:   p.MachineID,
		MachineName: machineName,
		BillNumber:  p.BillNumber,
		Amount:      money(p.Amount),
		Method:      p.Method,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
	}
}

type logResponse struct {
	ID          uuid.UUID     `json:"id"`
	MachineID   uuid.UUID     `json:"machine_id"`
	MachineName string        `json:"machine_name,omitempty"`
	Action      string        `json:"action"`
	Details     *string       `json:"details"`
	Type        model.LogType `json:"type"`
	CreatedAt   time.Time     `json:"created_at"`
}

func logDTO(l *model.Log, machineName string) logResponse {
	return logResponse{
		ID:          l.ID,
		MachineID:   l.MachineID,
		MachineName: machineName,
		Action:      l.Action,
		Details:     l.Details,
		Type:        l.Type,
		CreatedAt:   l.CreatedAt,
	}
}

type alertResponse struct {
	ID          string         `json:"id"`
	MachineID   *uuid.UUID     `json:"machine_id"`
	MachineName string         `json:"machine_name"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Severity    model.Severity `json:"severity"`
	Resolved    bool           `json:"resolved"`
	ResolvedAt  *time.Time     `json:"resolved_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

func alertDTO(e alert.Entry) alertResponse {
	return alertResponse{
		ID:          e.ID,
		MachineID:   e.MachineID,
		MachineName: e.MachineName,
		Title:       e.Title,
		Message:     e.Message,
		Severity:    e.Severity,
		Resolved:    e.Resolved,
		ResolvedAt:  e.ResolvedAt,
		CreatedAt:   e.CreatedAt,
	}
}

func alertRowDTO(row *store.AlertRow) alertResponse {
	return alertDTO(alert.EntryFromRow(row))
}

type billConfigResponse struct {
	ID            uuid.UUID `json:"id"`
	MachineID     uuid.UUID `json:"machine_id"`
	OrgName       string    `json:"org_name"`
	Tagline       *string   `json:"tagline"`
	LogoURL       *string   `json:"logo_url"`
	UnitName      *string   `json:"unit_name"`
	Territory     *string   `json:"territory"`
	GSTNumber     *string   `json:"gst_number"`
	POSID         *string   `json:"pos_id"`
	CGSTPercent   float64   `json:"cgst_percent"`
	SGSTPercent   float64   `json:"sgst_percent"`
	FooterMessage *string   `json:"footer_message"`
	Website       *string   `json:"website"`
	TollFree      *string   `json:"toll_free"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func billConfigDTO(b *model.BillConfig) billConfigResponse {
	return billConfigResponse{
		ID:            b.ID,
		MachineID:     b.MachineID,
		OrgName:       b.OrgName,
		Tagline:       b.Tagline,
		LogoURL:       b.LogoURL,
		UnitName:      b.UnitName,
		Territory:     b.Territory,
		GSTNumber:     b.GSTNumber,
		POSID:         b.POSID,
		CGSTPercent:   money(b.CGSTPercent),
		SGSTPercent:   money(b.SGSTPercent),
		FooterMessage: b.FooterMessage,
		Website:       b.Website,
		TollFree:      b.TollFree,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

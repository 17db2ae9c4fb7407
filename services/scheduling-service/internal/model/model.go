package model

import (
	"slices"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/workinghours"
)

type LocationMode string

const (
	LocationInPerson LocationMode = "in-person"
	LocationVirtual  LocationMode = "virtual"
)

func (m LocationMode) Valid() bool {
	return m == LocationInPerson || m == LocationVirtual
}

type StaffRole string

const (
	RoleAdmin        StaffRole = "admin"
	RolePractitioner StaffRole = "practitioner"
	RoleConsultant   StaffRole = "consultant"
)

type StaffStatus string

const (
	StaffActive   StaffStatus = "active"
	StaffInactive StaffStatus = "inactive"
	StaffOnLeave  StaffStatus = "on-leave"
)

type Client struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
}

// Capacity limits are advisory; the slot engine does not enforce them.
type Capacity struct {
	Rooms         int `json:"rooms"`
	MaxConcurrent int `json:"max_concurrent"`
	MaxDaily      int `json:"max_daily"`
}

type Centre struct {
	ID          string                      `json:"id"`
	Name        string                      `json:"name"`
	CountryCode string                      `json:"country_code"`
	IsActive    bool                        `json:"is_active"`
	ServiceIDs  []string                    `json:"service_ids"`
	Hours       workinghours.WeeklySchedule `json:"hours"`
	Capacity    Capacity                    `json:"capacity"`
}

func (c Centre) OffersService(serviceID string) bool {
	return slices.Contains(c.ServiceIDs, serviceID)
}

type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	IsActive        bool    `json:"is_active"`
}

type StaffMember struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Role                  StaffRole   `json:"role"`
	Status                StaffStatus `json:"status"`
	IsAvailableForBooking bool        `json:"is_available_for_booking"`
	AssignedCentres       []string    `json:"assigned_centres"`
	AvailableServices     []string    `json:"available_services"`
	MaxDailyAppointments  int         `json:"max_daily_appointments"`
	AppointmentDuration   int         `json:"appointment_duration"`
	// WorkingHours is keyed by centre id.
	WorkingHours map[string]workinghours.WeeklySchedule `json:"working_hours"`
}

// Bookable reports whether the staff member can take new appointments at all.
func (s StaffMember) Bookable() bool {
	return s.Status == StaffActive && s.IsAvailableForBooking
}

func (s StaffMember) AssignedTo(centreID string) bool {
	return slices.Contains(s.AssignedCentres, centreID)
}

func (s StaffMember) Offers(serviceID string) bool {
	return slices.Contains(s.AvailableServices, serviceID)
}

// ScheduleAt returns the staff member's weekly hours at a centre. The staff member is only
// schedulable there when assigned to the centre and an hours entry exists.
func (s StaffMember) ScheduleAt(centreID string) (workinghours.WeeklySchedule, bool) {
	if !s.AssignedTo(centreID) {
		return nil, false
	}
	w, ok := s.WorkingHours[centreID]
	return w, ok
}

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in-progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no-show"
)

// Terminal statuses accept no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Appointment keeps snapshots of the service name and price taken at booking time.
// Date is YYYY-MM-DD and StartTime/EndTime are HH:MM on that day.
type Appointment struct {
	ID                string            `json:"id"`
	ClientID          string            `json:"client_id,omitempty"`
	ClientName        string            `json:"client_name"`
	ClientEmail       string            `json:"client_email,omitempty"`
	ClientPhone       string            `json:"client_phone,omitempty"`
	PractitionerID    string            `json:"practitioner_id"`
	Date              string            `json:"date"`
	StartTime         string            `json:"start_time"`
	EndTime           string            `json:"end_time"`
	Duration          int               `json:"duration"`
	ServiceID         string            `json:"service_id,omitempty"`
	ServiceType       string            `json:"service_type"`
	LocationMode      LocationMode      `json:"location_mode"`
	CentreID          string            `json:"centre_id,omitempty"`
	Status            AppointmentStatus `json:"status"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	Price             float64           `json:"price"`
	Notes             string            `json:"notes,omitempty"`
	PractitionerNotes string            `json:"practitioner_notes,omitempty"`
	ReminderSent      bool              `json:"reminder_sent"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Blocks reports whether the appointment occupies its slot.
func (a Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}

// TimeSlot is produced per availability query and never stored.
type TimeSlot struct {
	Time          string `json:"time"`
	Available     bool   `json:"available"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

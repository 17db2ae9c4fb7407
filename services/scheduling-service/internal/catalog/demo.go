package catalog

import (
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
	wh "github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/workinghours"
)

func weekdayHours(start, end string, breaks ...wh.Break) wh.WeeklySchedule {
	return wh.Uniform(wh.DaySchedule{
		IsActive: true,
		Start:    wh.MustClock(start),
		End:      wh.MustClock(end),
		Breaks:   breaks,
	}, wh.Monday, wh.Tuesday, wh.Wednesday, wh.Thursday, wh.Friday)
}

func lunch() wh.Break {
	return wh.Break{Start: wh.MustClock("12:00"), End: wh.MustClock("13:00")}
}

// Demo returns the built-in demo catalog: two centres in GB, one in IE, none elsewhere.
func Demo() Snapshot {
	londonHours := weekdayHours("08:00", "20:00")
	londonHours[wh.Saturday] = wh.DaySchedule{IsActive: true, Start: wh.MustClock("09:00"), End: wh.MustClock("14:00")}

	return Snapshot{
		Centres: []model.Centre{
			{
				ID: "centre-london", Name: "London Marylebone", CountryCode: "GB", IsActive: true,
				ServiceIDs: []string{"svc-massage", "svc-physio", "svc-consult"},
				Hours:      londonHours,
				Capacity:   model.Capacity{Rooms: 6, MaxConcurrent: 6, MaxDaily: 80},
			},
			{
				ID: "centre-manchester", Name: "Manchester Deansgate", CountryCode: "GB", IsActive: true,
				ServiceIDs: []string{"svc-physio", "svc-consult"},
				Hours:      weekdayHours("09:00", "18:00"),
				Capacity:   model.Capacity{Rooms: 3, MaxConcurrent: 3, MaxDaily: 40},
			},
			{
				ID: "centre-dublin", Name: "Dublin Docklands", CountryCode: "IE", IsActive: true,
				ServiceIDs: []string{"svc-massage", "svc-consult"},
				Hours:      weekdayHours("09:00", "17:30"),
				Capacity:   model.Capacity{Rooms: 2, MaxConcurrent: 2, MaxDaily: 24},
			},
			{
				ID: "centre-leeds", Name: "Leeds (closed for refit)", CountryCode: "GB", IsActive: false,
				ServiceIDs: []string{"svc-massage"},
				Hours:      weekdayHours("09:00", "17:00"),
			},
		},
		Services: []model.Service{
			{ID: "svc-massage", Name: "Deep Tissue Massage", Category: "massage", DurationMinutes: 60, Price: 85, IsActive: true},
			{ID: "svc-physio", Name: "Physiotherapy Session", Category: "physiotherapy", DurationMinutes: 45, Price: 70, IsActive: true},
			{ID: "svc-consult", Name: "Wellness Consultation", Category: "consultation", DurationMinutes: 30, Price: 40, IsActive: true},
			{ID: "svc-cryo", Name: "Cryotherapy", Category: "recovery", DurationMinutes: 15, Price: 35, IsActive: false},
		},
		Staff: []model.StaffMember{
			{
				ID: "staff-amira", Name: "Amira Khan", Role: model.RolePractitioner, Status: model.StaffActive,
				IsAvailableForBooking: true,
				AssignedCentres:       []string{"centre-london"},
				AvailableServices:     []string{"svc-massage", "svc-consult"},
				MaxDailyAppointments:  10, AppointmentDuration: 60,
				WorkingHours: map[string]wh.WeeklySchedule{
					"centre-london": weekdayHours("09:00", "17:00", lunch()),
				},
			},
			{
				ID: "staff-tom", Name: "Tom Reilly", Role: model.RolePractitioner, Status: model.StaffActive,
				IsAvailableForBooking: true,
				AssignedCentres:       []string{"centre-london", "centre-manchester"},
				AvailableServices:     []string{"svc-physio", "svc-consult"},
				MaxDailyAppointments:  8, AppointmentDuration: 45,
				WorkingHours: map[string]wh.WeeklySchedule{
					"centre-london":     wh.Uniform(wh.DaySchedule{IsActive: true, Start: wh.MustClock("08:00"), End: wh.MustClock("12:00")}, wh.Monday, wh.Wednesday),
					"centre-manchester": wh.Uniform(wh.DaySchedule{IsActive: true, Start: wh.MustClock("10:00"), End: wh.MustClock("18:00"), Breaks: []wh.Break{lunch()}}, wh.Tuesday, wh.Thursday, wh.Friday),
				},
			},
			{
				ID: "staff-siobhan", Name: "Siobhan Murphy", Role: model.RoleConsultant, Status: model.StaffActive,
				IsAvailableForBooking: true,
				AssignedCentres:       []string{"centre-dublin"},
				AvailableServices:     []string{"svc-massage", "svc-consult"},
				MaxDailyAppointments:  8, AppointmentDuration: 30,
				WorkingHours: map[string]wh.WeeklySchedule{
					"centre-dublin": weekdayHours("09:00", "17:00", lunch()),
				},
			},
			{
				ID: "staff-lee", Name: "Lee Carter", Role: model.RolePractitioner, Status: model.StaffOnLeave,
				IsAvailableForBooking: true,
				AssignedCentres:       []string{"centre-london"},
				AvailableServices:     []string{"svc-massage"},
				MaxDailyAppointments:  6, AppointmentDuration: 60,
				WorkingHours: map[string]wh.WeeklySchedule{
					"centre-london": weekdayHours("10:00", "16:00"),
				},
			},
			{
				ID: "staff-nadia", Name: "Nadia Osei", Role: model.RoleAdmin, Status: model.StaffActive,
				IsAvailableForBooking: false,
				AssignedCentres:       []string{"centre-london", "centre-manchester"},
			},
		},
		Clients: []model.Client{
			{ID: "client-1", Name: "Priya Patel", Email: "priya@example.com", Phone: "+44 7700 900001", CountryCode: "GB"},
			{ID: "client-2", Name: "Sean Byrne", Email: "sean@example.com", Phone: "+353 85 000 0002", CountryCode: "IE"},
			{ID: "client-3", Name: "Maria Lopez", Email: "maria@example.com", Phone: "+1 555 0100", CountryCode: "US"},
		},
	}
}

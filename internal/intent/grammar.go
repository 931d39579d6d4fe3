package intent

// Intent names.
const (
	TodayAppointments   = "today_appointments"
	DoctorAppointments  = "doctor_appointments"
	PatientSearch       = "patient_search"
	ScheduleAppointment = "schedule_appointment"
	DoctorSchedule      = "doctor_schedule"
	Unknown             = "unknown"
)

// Entity keys.
const (
	EntityDate        = "date"
	EntityDoctorName  = "doctor_name"
	EntityPatientName = "patient_name"
)

// DateMode controls whether a matched rule adds a date entity.
type DateMode int

const (
	// DateNone adds no date.
	DateNone DateMode = iota
	// DateToday always sets date to the current day.
	DateToday
	// DateMentioned sets date to today or tomorrow when the query names one.
	DateMentioned
)

// Rule is one intent with its accepted phrasings, tried in order. Named
// capture groups in a pattern become entities of the same name.
type Rule struct {
	Intent   string
	Patterns []string
	DateMode DateMode
}

// Patterns run against the lower-cased, trimmed query.
const (
	doctorToken  = `\bdr\.?\s*(?P<doctor_name>\w+)`
	patientToken = `(?:\s+(?:named|called))?\s+(?P<patient_name>\w+)`
)

// DefaultRules is the front-desk grammar in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Intent: TodayAppointments,
			Patterns: []string{
				`show.*today.*appointments`,
				`today.*appointments`,
				`appointments.*today`,
				`what.*appointments.*today`,
			},
			DateMode: DateToday,
		},
		{
			Intent: DoctorAppointments,
			Patterns: []string{
				`show.*appointments.*(?:for|with).*` + doctorToken,
				`appointments.*` + doctorToken,
				doctorToken + `.*appointments`,
			},
			DateMode: DateMentioned,
		},
		{
			Intent: PatientSearch,
			Patterns: []string{
				`\bfind\b.*\bpatients?` + patientToken,
				`\bsearch\b.*\bpatients?` + patientToken,
				`\bpatients?\s+(?:named|called)\s+(?P<patient_name>\w+)`,
			},
		},
		{
			Intent: ScheduleAppointment,
			Patterns: []string{
				`schedule.*appointment`,
				`book.*appointment`,
				`create.*appointment`,
			},
		},
		{
			Intent: DoctorSchedule,
			Patterns: []string{
				`show.*schedule.*(?:for|of).*` + doctorToken,
				`when.*` + doctorToken + `.*available`,
			},
		},
	}
}

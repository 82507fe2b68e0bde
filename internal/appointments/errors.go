package appointments

const (
	ErrAppointmentNotFound = "appointment not found"
	ErrDoctorNotFound      = "doctor not found"
	ErrPatientNotFound     = "patient not found"
	ErrTimeConflict        = "appointment time conflicts with an existing appointment"
	ErrInvalidDate         = "invalid date reference - e.g. 2024-08-10"
	ErrInvalidTime         = "invalid time reference - e.g. 09:30"
	ErrInvalidDuration     = "invalid duration - minutes, e.g. 30"
)

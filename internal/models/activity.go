package models

// Activity is one auth event recorded for a principal.
type Activity struct {
	Message string
	Filter  LogFilter
	Object  interface{}
}

type LogFilter struct {
	Fields    map[string]string
	Timestamp string
}

// TimeSeriesPoint represents a data point in a time series chart.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type ActivityAction string

const (
	ActivitySignUp          ActivityAction = "sign_up"
	ActivityLogin           ActivityAction = "login"
	ActivityLogout          ActivityAction = "logout"
	ActivityPasswordReset   ActivityAction = "password_reset"
	ActivityPasswordChange  ActivityAction = "password_change"
	ActivityEmailVerified   ActivityAction = "email_verified"
	ActivityProfileUpdate   ActivityAction = "profile_update"
	ActivityActionLinkOpen  ActivityAction = "action_link_open"
	ActivityVerificationReq ActivityAction = "verification_requested"
)

type ActivityResponse struct {
	Activities []map[string]interface{} `json:"activities"`
	PerDay     []TimeSeriesPoint        `json:"per_day"`
}

package dto

// ErrorResponse — стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// SuccessResponse — стандартный ответ с данными.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse — ответ со списком и параметрами пагинации.
type ListResponse struct {
	Items  interface{} `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// WorklogEligibilityResponse — ответ проверки возможности подать ворклог.
type WorklogEligibilityResponse struct {
	Eligible    bool     `json:"eligible"`
	Reason      string   `json:"reason,omitempty"`
	HoursWorked *float64 `json:"hours_worked,omitempty"`
	WeeklyLimit *float64 `json:"weekly_limit,omitempty"`
}

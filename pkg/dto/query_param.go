package dto

type Filter struct {
	Page         int    `query:"page"`
	Limit        int    `query:"limit"`
	Status       string `query:"status"`
	ClientID     int64  `query:"client_id"`
	FreelancerID int64  `query:"freelancer_id"`
}

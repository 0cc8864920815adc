package listappeals

import "docverify/internal/models"

type Input struct {
	AppealID          string `json:"appealId,omitempty"`
	CitizenID         string `json:"citizenId,omitempty"`
	Status            string `json:"status,omitempty"`
	Page              int    `json:"page,omitempty"`
	PerPage           int    `json:"perPage,omitempty"`
	IncludeStatistics bool   `json:"includeStatistics,omitempty"`
}

type Output struct {
	Items      []*models.Appeal         `json:"items"`
	Total      int                      `json:"total"`
	Page       int                      `json:"page"`
	PerPage    int                      `json:"perPage"`
	Statistics *models.AppealStatistics `json:"statistics,omitempty"`
}

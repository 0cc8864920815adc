package listcases

import "time"

// Input either fetches one case by id or lists cases. A non-empty Query
// runs a full-text search when the search index is configured.
type Input struct {
	CaseID       string `json:"caseId,omitempty"`
	Kind         string `json:"kind,omitempty"`
	CitizenID    string `json:"citizenId,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
	Status       string `json:"status,omitempty"`
	Query        string `json:"query,omitempty"`
	Page         int    `json:"page,omitempty"`
	PerPage      int    `json:"perPage,omitempty"`
}

type CaseSummary struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	CitizenName   string  `json:"citizenName"`
	CitizenID     string  `json:"citizenId"`
	DocumentType  string  `json:"documentType"`
	Status        string  `json:"status"`
	Stage         string  `json:"stage"`
	Priority      string  `json:"priority"`
	Verdict       string  `json:"verdict,omitempty"`
	Confidence    float64 `json:"confidence"`
	RegistryMatch bool    `json:"registryMatch"`
	Feedback      string  `json:"feedback"`
	DocumentCount int     `json:"documentCount"`
	QueuePosition int     `json:"queuePosition"`
	// LatestVerdict is the newest evaluation on the case, if any.
	LatestVerdict map[string]interface{} `json:"latestVerdict,omitempty"`
	Version       int64                  `json:"version"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

type Output struct {
	Items   []CaseSummary `json:"items"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"perPage"`
	Source  string        `json:"source"`
}

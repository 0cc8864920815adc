package createdocumentrequest

import "docverify/internal/models"

type Input struct {
	Citizen      models.Citizen `json:"citizen"`
	DocumentType string         `json:"documentType"`
	Reason       string         `json:"reason,omitempty"`
}

type Output struct {
	RequestID     string `json:"requestId"`
	Status        string `json:"status"`
	Stage         string `json:"stage"`
	Reason        string `json:"reason"`
	RegistryMatch bool   `json:"registryMatch"`
	QueuePosition int    `json:"queuePosition"`
}

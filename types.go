package main

import (
	"time"

	"herbtrace/batching"
	"herbtrace/models"
	"herbtrace/validation"
)

// Request/response DTOs. Keep them minimal and explicit.

type registerReq struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"fullName"`
	Role             string `json:"role"`
	LocationDistrict string `json:"locationDistrict,omitempty"`
	LocationState    string `json:"locationState,omitempty"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string `json:"token"`
	User  any    `json:"user,omitempty"`
}

type submitCollectionReq struct {
	Species       string    `json:"species"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit,omitempty"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Altitude      *float64  `json:"altitude,omitempty"`
	Accuracy      *float64  `json:"accuracy,omitempty"`
	HarvestDate   time.Time `json:"harvestDate"`
	HarvestMethod string    `json:"harvestMethod,omitempty"`
	PartCollected string    `json:"partCollected,omitempty"`
}

type submitCollectionResp struct {
	Collection *models.CollectionEvent `json:"collection"`
	Validation validation.Result       `json:"validation"`
	Warnings   []string                `json:"warnings,omitempty"`
}

type validationErrorResp struct {
	Error      string            `json:"error"`
	Validation validation.Result `json:"validation"`
}

type listResp[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

type retrySyncResp struct {
	Attempted int      `json:"attempted"`
	Synced    int      `json:"synced"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failedIds,omitempty"`
}

type createBatchReq struct {
	Species       string   `json:"species"`
	CollectionIDs []string `json:"collectionIds"`
	AssignedTo    string   `json:"assignedTo,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

type assignBatchReq struct {
	AssignedTo string `json:"assignedTo"`
}

type batchStatusReq struct {
	Status string `json:"status"`
}

type smartGroupsReq struct {
	Species string                  `json:"species,omitempty"`
	Params  batching.GroupingParams `json:"params"`
}

type seasonWindowReq struct {
	Species    string `json:"species"`
	Region     string `json:"region"`
	StartMonth int    `json:"startMonth"`
	EndMonth   int    `json:"endMonth"`
	Active     *bool  `json:"active,omitempty"`
}

type harvestLimitReq struct {
	Species        string  `json:"species"`
	FarmerID       string  `json:"farmerId"`
	Season         string  `json:"season"`
	MaxQuantity    float64 `json:"maxQuantity"`
	Unit           string  `json:"unit,omitempty"`
	AlertThreshold float64 `json:"alertThreshold,omitempty"`
}

// Package domain holds DTOs for samples http and service contracts
package domain

import "encoding/json"

// ListInput filters the sample listing
type ListInput struct {
	Subject string `query:"subject" json:"subject,omitempty" validate:"omitempty,max=200" example:"donor-7"`
	Limit   int    `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"50"`
	Offset  int    `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0" example:"0"`
}

// SequencesInput filters the sequences of one sample
type SequencesInput struct {
	Status     string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=aligned indel partial failed" example:"aligned"`
	Functional bool   `query:"functional" json:"functional,omitempty" example:"true"`
	Limit      int    `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"100"`
	Offset     int    `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0" example:"0"`
}

// Sample is one sequenced sample
type Sample struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Subject      string          `json:"subject"`
	Metadata     json.RawMessage `json:"metadata,omitempty" swaggertype:"object"`
	ReadsTotal   int             `json:"reads_total"`
	ReadsFailed  int             `json:"reads_failed"`
	IdentifiedAt string          `json:"identified_at,omitempty"`
	CollapsedAt  string          `json:"collapsed_at,omitempty"`
}

// Sequence is one identified read of a sample
type Sequence struct {
	ID               int64    `json:"id"`
	ReadIDs          []string `json:"read_ids"`
	Status           string   `json:"status"`
	Reason           string   `json:"reason,omitempty"`
	Locus            string   `json:"locus,omitempty"`
	VTies            string   `json:"v_ties,omitempty"`
	JTies            string   `json:"j_ties,omitempty"`
	CDR3NT           string   `json:"cdr3_nt,omitempty"`
	CDR3AA           string   `json:"cdr3_aa,omitempty"`
	Similarity       float64  `json:"similarity"`
	Copies           int      `json:"copies"`
	Stop             bool     `json:"stop"`
	InFrame          bool     `json:"in_frame"`
	Functional       bool     `json:"functional"`
	MutationFraction float64  `json:"mutation_fraction"`
	Sequence         string   `json:"sequence,omitempty"`
}

// Page is a slice of results with the unpaged total
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

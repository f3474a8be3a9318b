// Package domain holds DTOs for the clones http and service contracts
package domain

// ListInput filters the clone listing
type ListInput struct {
	Subject   string `query:"subject" json:"subject,omitempty" validate:"omitempty,max=200" example:"donor-7"`
	Locus     string `query:"locus" json:"locus,omitempty" validate:"omitempty,locus" example:"IGH"`
	Mode      string `query:"mode" json:"mode,omitempty" validate:"omitempty,oneof=similarity lineage import" example:"lineage"`
	VGene     string `query:"v_gene" json:"v_gene,omitempty" validate:"omitempty,max=64" example:"IGHV3-23"`
	MinCopies int    `query:"min_copies" json:"min_copies,omitempty" validate:"omitempty,min=0" example:"10"`
	Subclones bool   `query:"subclones" json:"subclones,omitempty" example:"false"`
	Limit     int    `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"50"`
	Offset    int    `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0" example:"0"`
}

// TreeInput overrides the default render filters; absent fields keep the default
type TreeInput struct {
	MinMutCopies  *int  `query:"min_mut_copies" json:"min_mut_copies,omitempty" validate:"omitempty,gte=0"`
	MinMutSamples *int  `query:"min_mut_samples" json:"min_mut_samples,omitempty" validate:"omitempty,gte=0"`
	MinSeqCopies  *int  `query:"min_seq_copies" json:"min_seq_copies,omitempty" validate:"omitempty,gte=0"`
	MinSeqSamples *int  `query:"min_seq_samples" json:"min_seq_samples,omitempty" validate:"omitempty,gte=0"`
	ExcludeStops  *bool `query:"exclude_stops" json:"exclude_stops,omitempty"`
	Force         bool  `query:"force" json:"force,omitempty"`
}

// Clone is one clone with its totals
type Clone struct {
	ID          int64  `json:"id"`
	Subject     string `json:"subject"`
	Locus       string `json:"locus"`
	VTies       string `json:"v_ties"`
	JTies       string `json:"j_ties"`
	CDR3Len     int    `json:"cdr3_len"`
	CDR3NT      string `json:"cdr3_nt"`
	CDR3AA      string `json:"cdr3_aa"`
	Mode        string `json:"mode"`
	Level       string `json:"level"`
	ParentID    int64  `json:"parent_id,omitempty"`
	Depth       int    `json:"depth"`
	UniqueSeqs  int    `json:"unique_sequences"`
	TotalCopies int    `json:"total_copies"`
	CreatedAt   string `json:"created_at"`
}

// SampleStat is a clone's presence in one sample
type SampleStat struct {
	SampleID    int64  `json:"sample_id"`
	Sample      string `json:"sample"`
	UniqueSeqs  int    `json:"unique_sequences"`
	TotalCopies int    `json:"total_copies"`
}

// Member is one subject level sequence of a clone
type Member struct {
	SeqID     int64   `json:"seq_id"`
	Copies    int     `json:"copies"`
	CDR3AA    string  `json:"cdr3_aa"`
	VIdentity float64 `json:"v_identity"`
	Stop      bool    `json:"stop"`
}

// CloneDetail is a clone with its germline, per sample stats, members and subclones
type CloneDetail struct {
	Clone
	Germline  string       `json:"germline"`
	Samples   []SampleStat `json:"samples"`
	Members   []Member     `json:"members"`
	Subclones []int64      `json:"subclones,omitempty"`
}

// Page is a slice of clones with the unpaged total
type Page struct {
	Items  []Clone `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

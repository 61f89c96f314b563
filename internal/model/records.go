package model

import "time"

// GenotypeSummary is a coarse structural description of one genotype.
type GenotypeSummary struct {
	Nodes       int            `json:"nodes"`
	Neurons     int            `json:"neurons"`
	Connections int            `json:"connections"`
	MaxDepth    int            `json:"max_depth"`
	Shapes      map[string]int `json:"shapes"`
	Joints      map[string]int `json:"joints"`
}

type GenotypeRecord struct {
	VersionedRecord
	ID          string          `json:"id"`
	Text        string          `json:"text"`
	Fingerprint string          `json:"fingerprint"`
	Summary     GenotypeSummary `json:"summary"`
	CreatedAt   time.Time       `json:"created_at"`
}

type LineageRecord struct {
	VersionedRecord
	GenotypeID  string   `json:"genotype_id"`
	ParentIDs   []string `json:"parent_ids"`
	Generation  int      `json:"generation"`
	Operation   string   `json:"operation"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Nodes       int      `json:"nodes"`
	Neurons     int      `json:"neurons"`
}

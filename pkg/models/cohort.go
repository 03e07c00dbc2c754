package models

// Cohort is a community that survived tripartite pruning: a set of
// persons together with the institutions and dates that tie them
// together, and the degree statistics the scorer consumes.
type Cohort struct {
	Persons      []string
	Institutions []string
	Times        []string
	Size         int

	Degree1 float64 // mean degree of time vertices in the pruned G2 subgraph
	Degree2 float64 // mean degree of institution vertices
	Degree3 float64 // mean degree of person vertices (within G2)
	Degree4 float64 // mean degree of persons within the G1-induced subgraph

	Connectivity bool // true iff the G1-induced subgraph on Persons is connected
	Score        float64
	GroupID      string
}

// RiskGroup is one long-form output row: a (person, institution, date)
// triple belonging to a surviving subgroup of a scored cohort.
type RiskGroup struct {
	GroupID         string
	SubgroupID      string
	RiskClinicRatio float64
	PersonID        string
	MedClinicID     string
	FlxMedOrgID     string
	MedType         string
	AdmDate         string
	AdmTime         int64 // unix seconds, matches the originating visit

	ModelNo       string
	Admdvs        string
	InputBegnDate string
	InputEndDate  string
}

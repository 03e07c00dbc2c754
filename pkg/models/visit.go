// Package models holds the data types shared across the card-aggregation
// detection pipeline: visit rows read from the claims table, the
// intermediate risk pairs and cohorts the pipeline builds, and the
// long-form risk groups it emits.
package models

import "time"

// Visit is one claim-settlement row: a single person's admission at a
// single institution. (person_id, adm_time) need not be unique — a person
// may have several visits in the same second at different institutions.
type Visit struct {
	Admdvs      string    // medical-insurance administrative division
	MedClinicID string    // unique visit id
	PersonID    string    // card holder
	MedType     string    // "11" outpatient, "41" clinic
	FlxMedOrgID string    // institution id
	AdmTime     time.Time // admission timestamp, second precision
	AdmDate     string    // admission date, "YYYY-MM-DD", derived from AdmTime
}

// AdmTimeWindow buckets AdmTime into a time_interval-second window index.
// Two visits share a window iff floor(unix(adm_time)/interval) matches.
func (v Visit) AdmTimeWindow(timeIntervalSeconds int64) int64 {
	if timeIntervalSeconds <= 0 {
		timeIntervalSeconds = 1
	}
	return v.AdmTime.Unix() / timeIntervalSeconds
}

// RiskPair is an unordered co-visit pair with PersonA < PersonB
// lexicographically. Jzcs is the co-visit count, JgNum the number of
// distinct institutions the pair co-visited at.
type RiskPair struct {
	PersonA string
	PersonB string
	Jzcs    int
	JgNum   int
}

// MeetsThreshold reports whether the pair clears the configured minimums.
// A threshold of 0 disables the corresponding check.
func (p RiskPair) MeetsThreshold(minCount, minJgNum int) bool {
	if minCount > 0 && p.Jzcs < minCount {
		return false
	}
	if minJgNum > 0 && p.JgNum < minJgNum {
		return false
	}
	return true
}

// WindowMetadata carries the date range and run identity a window's
// results are tagged with on the way to a ResultSink.
type WindowMetadata struct {
	ModelNo       string
	RunTime       time.Time
	Admdvs        string
	InputBegnDate string
	InputEndDate  string
	GroupIDPrefix string // set once per window, e.g. the run's epoch seconds
}

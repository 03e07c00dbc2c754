// Package score implements the cohort scorer, subgroup explosion and
// subgroup filter (spec §4.F).
package score

import (
	"sort"
	"strconv"

	"github.com/healthrisk/cardagg-engine/internal/graph"
	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// topN is the cap on scored cohorts retained per window (spec §4.F).
const topN = 10000

// Options configures the scorer's subgroup filter.
type Options struct {
	MinPersonRatioInSubgroup   float64
	MinRiskClinicRatioInGroup float64
}

// Score computes connectivity, degree4 and the final score for each
// cohort, using g1 to induce the person-only subgraph, and returns the
// scored copies; the input slice is not modified.
func Score(g1 *graph.PersonGraph, cohorts []models.Cohort) []models.Cohort {
	scored := make([]models.Cohort, len(cohorts))
	for i, c := range cohorts {
		induced := g1.Induce(c.Persons)
		c.Connectivity = induced.Connected()
		c.Degree4 = induced.MeanDegree()

		connectivityTerm := 0.0
		if c.Connectivity {
			connectivityTerm = 1.0
		}
		sizeTerm := 0.0
		if c.Size > 0 {
			sizeTerm = c.Degree4 / float64(c.Size)
		}
		c.Score = connectivityTerm + 0.1*(c.Degree1+c.Degree2+c.Degree3) + sizeTerm
		scored[i] = c
	}
	return scored
}

// RankAndAssignGroupIDs sorts cohorts by score descending (stable, so
// ties keep their original insertion order), retains the top 10,000, and
// assigns "<groupIDPrefix>_<rank>" group ids.
func RankAndAssignGroupIDs(cohorts []models.Cohort, groupIDPrefix string) []models.Cohort {
	ranked := make([]models.Cohort, len(cohorts))
	copy(ranked, cohorts)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	for i := range ranked {
		ranked[i].GroupID = groupIDPrefix + "_" + strconv.Itoa(i+1)
	}
	return ranked
}

// cartesianRow is one (time, institution, person) combination before the
// visit-table inner join.
type cartesianRow struct {
	groupID string
	date    string
	org     string
	person  string
}

// explode produces the Cartesian product c_times x c_jgids x c_person_ids
// for every cohort (spec §4.F "Long-form explosion").
func explode(cohorts []models.Cohort) []cartesianRow {
	var out []cartesianRow
	for _, c := range cohorts {
		for _, t := range c.Times {
			for _, jg := range c.Institutions {
				for _, p := range c.Persons {
					out = append(out, cartesianRow{groupID: c.GroupID, date: t, org: jg, person: p})
				}
			}
		}
	}
	return out
}

// visitKey joins a row back to the source visit table.
type visitKey struct {
	person string
	org    string
	date   string
}

// ExplodeAndFilter produces the final long-form risk-group rows: the
// Cartesian explosion joined back to visits, then filtered by subgroup
// person-share and group risk-clinic-share thresholds.
func ExplodeAndFilter(cohorts []models.Cohort, visits []models.Visit, meta models.WindowMetadata, opt Options) []models.RiskGroup {
	visitIndex := make(map[visitKey][]models.Visit, len(visits))
	for _, v := range visits {
		key := visitKey{person: v.PersonID, org: v.FlxMedOrgID, date: v.AdmDate}
		visitIndex[key] = append(visitIndex[key], v)
	}

	byGroup := make(map[string][]models.RiskGroup)
	for _, row := range explode(cohorts) {
		key := visitKey{person: row.person, org: row.org, date: row.date}
		for _, v := range visitIndex[key] {
			byGroup[row.groupID] = append(byGroup[row.groupID], models.RiskGroup{
				GroupID:       row.groupID,
				PersonID:      v.PersonID,
				MedClinicID:   v.MedClinicID,
				FlxMedOrgID:   v.FlxMedOrgID,
				MedType:       v.MedType,
				AdmDate:       v.AdmDate,
				AdmTime:       v.AdmTime.Unix(),
				ModelNo:       meta.ModelNo,
				Admdvs:        meta.Admdvs,
				InputBegnDate: meta.InputBegnDate,
				InputEndDate:  meta.InputEndDate,
			})
		}
	}

	var out []models.RiskGroup
	groupIDs := make([]string, 0, len(byGroup))
	for gid := range byGroup {
		groupIDs = append(groupIDs, gid)
	}
	sort.Strings(groupIDs)

	for _, gid := range groupIDs {
		rows := byGroup[gid]
		out = append(out, filterSubgroups(gid, rows, opt)...)
	}
	return out
}

func filterSubgroups(groupID string, rows []models.RiskGroup, opt Options) []models.RiskGroup {
	distinctPersons := make(map[string]bool)
	for _, r := range rows {
		distinctPersons[r.PersonID] = true
	}
	n := len(distinctPersons)
	if n == 0 {
		return nil
	}

	type subgroupKey struct{ org, date string }
	bySubgroup := make(map[subgroupKey][]models.RiskGroup)
	var subgroupOrder []subgroupKey
	for _, r := range rows {
		k := subgroupKey{org: r.FlxMedOrgID, date: r.AdmDate}
		if _, seen := bySubgroup[k]; !seen {
			subgroupOrder = append(subgroupOrder, k)
		}
		bySubgroup[k] = append(bySubgroup[k], r)
	}
	sort.Slice(subgroupOrder, func(i, j int) bool {
		if subgroupOrder[i].org != subgroupOrder[j].org {
			return subgroupOrder[i].org < subgroupOrder[j].org
		}
		return subgroupOrder[i].date < subgroupOrder[j].date
	})

	var kept []models.RiskGroup
	keptRowCount := 0
	subgroupID := 0
	for _, k := range subgroupOrder {
		subRows := bySubgroup[k]
		persons := make(map[string]bool)
		for _, r := range subRows {
			persons[r.PersonID] = true
		}
		ratio := float64(len(persons)) / float64(n)
		if ratio < opt.MinPersonRatioInSubgroup {
			continue
		}
		subgroupID++
		sid := strconv.Itoa(subgroupID)
		for _, r := range subRows {
			r.SubgroupID = sid
			kept = append(kept, r)
		}
		keptRowCount += len(subRows)
	}

	if len(rows) == 0 {
		return nil
	}
	riskClinicRatio := float64(keptRowCount) / float64(len(rows))
	if riskClinicRatio < opt.MinRiskClinicRatioInGroup {
		return nil
	}
	for i := range kept {
		kept[i].RiskClinicRatio = riskClinicRatio
	}
	return kept
}

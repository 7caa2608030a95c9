// Copyright 2023 - 2025 The Samply Community
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/samply/qualityctl/util"
)

// Column names of the claims export format. A claim split across billing
// systems arrives as multiple rows sharing a splt_clm_id and is merged back
// into one claim during reading.
const (
	colSplitClaimID = "splt_clm_id"
	colBeneficiary  = "bene_sk"
	colBirthDate    = "clm_ptnt_birth_dt"
	colSexCode      = "clm_bene_sex_cd"
	colNPI          = "clm_line_rndrg_prvdr_npi_num"
	colTIN          = "clm_rndrg_prvdr_tax_num"
	colClaimFrom    = "clm_from_dt"
	colClaimThru    = "clm_thru_dt"
	colLineFrom     = "clm_line_from_dt"
	colLineThru     = "clm_line_thru_dt"
	colLineNum      = "clm_line_num"
	colProcedure    = "clm_line_hcpcs_cd"
	colPOS          = "clm_pos_cd"
)

var headerColumns = []string{colSplitClaimID, colBeneficiary, colBirthDate,
	colSexCode, colNPI, colTIN}

var diagnosisColumns = []string{
	"clm_dgns_1_cd", "clm_dgns_2_cd", "clm_dgns_3_cd", "clm_dgns_4_cd",
	"clm_dgns_5_cd", "clm_dgns_6_cd", "clm_dgns_7_cd", "clm_dgns_8_cd",
	"clm_dgns_9_cd", "clm_dgns_10_cd", "clm_dgns_11_cd", "clm_dgns_12_cd",
}

var modifierColumns = []string{
	"hcpcs_1_mdfr_cd", "hcpcs_2_mdfr_cd", "hcpcs_3_mdfr_cd",
	"hcpcs_4_mdfr_cd", "hcpcs_5_mdfr_cd",
}

// softMismatchColumns may disagree across the rows of a split claim without
// blocking the merge. The beneficiary keys already match in that case, so the
// first row's value is used and a warning is logged.
var softMismatchColumns = map[string]bool{colBirthDate: true, colSexCode: true}

// A ProviderKey identifies a provider by tax identification number and
// national provider identifier.
type ProviderKey struct {
	TIN string
	NPI string
}

// A ClaimsReader loads claims from a CSV export of the claims warehouse.
type ClaimsReader struct {
	// MinClaimLines drops providers with fewer rows than this, to guard
	// against rare-value re-identification in development data sets. Zero
	// disables the check.
	MinClaimLines int

	Logger zerolog.Logger
}

type claimRow struct {
	fields map[string]string
}

// LoadCSV reads the export at csvPath and returns the claims of a single
// provider, merged from their split-claim rows.
func (r *ClaimsReader) LoadCSV(csvPath, providerTIN, providerNPI string) ([]*Claim, error) {
	rows, err := r.readRows(csvPath)
	if err != nil {
		return nil, err
	}
	var filtered []claimRow
	for _, row := range rows {
		if row.fields[colTIN] == providerTIN && row.fields[colNPI] == providerNPI {
			filtered = append(filtered, row)
		}
	}
	return r.groupRows(filtered)
}

// LoadBatchCSV reads the export at csvPath and returns the claims of every
// provider in it, keyed by TIN and NPI.
func (r *ClaimsReader) LoadBatchCSV(csvPath string) (map[ProviderKey][]*Claim, error) {
	rows, err := r.readRows(csvPath)
	if err != nil {
		return nil, err
	}
	byProvider := map[ProviderKey][]claimRow{}
	for _, row := range rows {
		key := ProviderKey{TIN: row.fields[colTIN], NPI: row.fields[colNPI]}
		byProvider[key] = append(byProvider[key], row)
	}
	claims := make(map[ProviderKey][]*Claim, len(byProvider))
	for key, providerRows := range byProvider {
		if r.MinClaimLines > 0 && len(providerRows) < r.MinClaimLines {
			r.Logger.Debug().Int("rows", len(providerRows)).
				Msg("Dropping provider with too few claim lines")
			continue
		}
		providerClaims, err := r.groupRows(providerRows)
		if err != nil {
			return nil, err
		}
		claims[key] = providerClaims
	}
	return claims, nil
}

func (r *ClaimsReader) readRows(csvPath string) ([]claimRow, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open claims export: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read claims export %s: %w", csvPath, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("claims export %s has no header row", csvPath)
	}

	header := map[string]int{}
	for i, name := range records[0] {
		header[name] = i
	}
	required := append([]string{colClaimFrom, colClaimThru, colLineFrom,
		colLineThru, colLineNum, colProcedure, colPOS}, headerColumns...)
	for _, name := range required {
		if _, ok := header[name]; !ok {
			return nil, fmt.Errorf("claims export %s is missing column %s", csvPath, name)
		}
	}

	rows := make([]claimRow, 0, len(records)-1)
	for _, record := range records[1:] {
		fields := make(map[string]string, len(header))
		for name, i := range header {
			if i < len(record) {
				fields[name] = record[i]
			}
		}
		rows = append(rows, claimRow{fields: fields})
	}
	return rows, nil
}

func (r *ClaimsReader) groupRows(rows []claimRow) ([]*Claim, error) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].fields[colSplitClaimID] < rows[j].fields[colSplitClaimID]
	})
	var claims []*Claim
	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) &&
			rows[end].fields[colSplitClaimID] == rows[start].fields[colSplitClaimID] {
			end++
		}
		claim, err := r.rowsToClaim(rows[start:end])
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
		start = end
	}
	r.Logger.Debug().Int("rows", len(rows)).Int("claims", len(claims)).
		Msg("Grouped claim lines into claims")
	return claims, nil
}

// rowsToClaim merges the rows of one split claim into a claim. Header-level
// columns must agree across the rows; a disagreement on an identity-critical
// column makes the merge unsafe and fails the load.
func (r *ClaimsReader) rowsToClaim(rows []claimRow) (*Claim, error) {
	first := rows[0].fields
	for _, col := range headerColumns {
		for _, row := range rows[1:] {
			if row.fields[col] == first[col] {
				continue
			}
			if softMismatchColumns[col] {
				r.Logger.Warn().Str("column", col).
					Str("splitClaimId", first[colSplitClaimID]).
					Msgf("Column varies across lines of a split claim")
				continue
			}
			return nil, fmt.Errorf("column %s varies across lines of split claim %s",
				col, first[colSplitClaimID])
		}
	}

	birthDate, err := parseDate(first[colBirthDate])
	if err != nil {
		return nil, fmt.Errorf("split claim %s: %w", first[colSplitClaimID], err)
	}

	claim := &Claim{
		SplitClaimID:  first[colSplitClaimID],
		BeneficiaryID: first[colBeneficiary],
		BirthDate:     birthDate,
		SexCode:       first[colSexCode],
		ProviderNPI:   first[colNPI],
		ProviderTIN:   first[colTIN],
	}

	dxSeen := map[string]bool{}
	for _, row := range rows {
		from, err := parseDate(row.fields[colClaimFrom])
		if err != nil {
			return nil, fmt.Errorf("split claim %s: %w", claim.SplitClaimID, err)
		}
		thru, err := parseDate(row.fields[colClaimThru])
		if err != nil {
			return nil, fmt.Errorf("split claim %s: %w", claim.SplitClaimID, err)
		}
		if claim.FromDate.IsZero() || from.Before(claim.FromDate) {
			claim.FromDate = from
		}
		if thru.After(claim.ThruDate) {
			claim.ThruDate = thru
		}
		for _, col := range diagnosisColumns {
			if code := row.fields[col]; code != "" && !dxSeen[code] {
				dxSeen[code] = true
				claim.DiagnosisCodes = append(claim.DiagnosisCodes, code)
			}
		}
		line, err := rowToLine(row)
		if err != nil {
			return nil, fmt.Errorf("split claim %s: %w", claim.SplitClaimID, err)
		}
		claim.Lines = append(claim.Lines, line)
	}
	return claim, nil
}

func rowToLine(row claimRow) (ClaimLine, error) {
	from, err := parseDate(row.fields[colLineFrom])
	if err != nil {
		return ClaimLine{}, err
	}
	thru, err := parseDate(row.fields[colLineThru])
	if err != nil {
		return ClaimLine{}, err
	}
	lineNum, err := strconv.Atoi(row.fields[colLineNum])
	if err != nil {
		return ClaimLine{}, fmt.Errorf("invalid line number %q", row.fields[colLineNum])
	}
	line := ClaimLine{
		LineNumber:     lineNum,
		ProcedureCode:  row.fields[colProcedure],
		PlaceOfService: row.fields[colPOS],
		FromDate:       from,
		ThruDate:       thru,
	}
	for _, col := range modifierColumns {
		if modifier := row.fields[col]; modifier != "" {
			line.ModifierCodes = append(line.ModifierCodes, modifier)
		}
	}
	return line, nil
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return util.Day(parsed.Year(), parsed.Month(), parsed.Day()), nil
}

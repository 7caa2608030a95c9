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

// A MeasureCode describes one encounter, procedure or quality code in a measure
// definition, together with optional place-of-service and modifier constraints.
// Immutable once compiled.
type MeasureCode struct {
	Code                      string   `json:"code"`
	Modifiers                 []string `json:"modifiers"`
	ModifierExclusions        []string `json:"modifierExclusions"`
	PlacesOfService           []string `json:"placesOfService"`
	PlacesOfServiceExclusions []string `json:"placesOfServiceExclusions"`

	modifierSet  map[string]bool
	modifierXSet map[string]bool
	posSet       map[string]bool
	posXSet      map[string]bool
}

// compile derives the constraint sets once. Only constraints with non-empty
// inputs are evaluated during matching.
func (mc *MeasureCode) compile() {
	mc.modifierSet = stringSet(mc.Modifiers)
	mc.modifierXSet = stringSet(mc.ModifierExclusions)
	mc.posSet = stringSet(mc.PlacesOfService)
	mc.posXSet = stringSet(mc.PlacesOfServiceExclusions)
}

// MatchesLine applies the measure code constraints to the claim line. The exact
// procedure-code comparison runs first since it is the cheapest and most
// selective check; the configured place-of-service and modifier constraints
// must all pass. Absent constraints are treated as unconstrained.
func (mc *MeasureCode) MatchesLine(line ClaimLine) bool {
	if mc.Code != line.ProcedureCode {
		return false
	}
	if len(mc.posSet) > 0 && !mc.posSet[line.PlaceOfService] {
		return false
	}
	if len(mc.posXSet) > 0 && mc.posXSet[line.PlaceOfService] {
		return false
	}
	if len(mc.modifierSet) > 0 && !intersects(mc.modifierSet, line.ModifierCodes) {
		return false
	}
	if len(mc.modifierXSet) > 0 && intersects(mc.modifierXSet, line.ModifierCodes) {
		return false
	}
	return true
}

func stringSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func intersects(set map[string]bool, values []string) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}

// codesByString groups a list of measure codes by their code string. The same
// code string may carry different modifier or place-of-service constraints in
// different contexts, so the map values are lists.
func codesByString(codes []MeasureCode) map[string][]*MeasureCode {
	if len(codes) == 0 {
		return nil
	}
	byString := make(map[string][]*MeasureCode)
	for i := range codes {
		byString[codes[i].Code] = append(byString[codes[i].Code], &codes[i])
	}
	return byString
}

package domain

// TravelerProfile describes the household being evacuated. It is supplied
// once by the caller and is read-only to scoring.
type TravelerProfile struct {
	Household            Household            `json:"household"`
	Mobility             Mobility             `json:"mobility"`
	Transportation       Transportation       `json:"transportation"`
	Medical              Medical              `json:"medical"`
	EvacuationPreference EvacuationPreference `json:"evacuation_preference"`
}

type Household struct {
	Adults  int  `json:"adults"`
	Minors  int  `json:"minors"`
	Seniors int  `json:"seniors"`
	Pets    Pets `json:"pets"`
}

// Pets counts household animals. Total is derived from the per-kind counts
// when those are set, so callers may send either form.
type Pets struct {
	Dogs  int `json:"dogs"`
	Cats  int `json:"cats"`
	Other int `json:"other"`
	Count int `json:"total"`
}

func (p Pets) Total() int {
	if sum := p.Dogs + p.Cats + p.Other; sum > 0 {
		return sum
	}
	return p.Count
}

type Mobility struct {
	HasDisabilities    bool `json:"has_disabilities"`
	RequiresAssistance bool `json:"requires_assistance"`
}

type Transportation struct {
	HasVehicle     bool    `json:"has_vehicle"`
	VehicleType    string  `json:"vehicle_type,omitempty"` // e.g. "sedan", "suv", "truck"
	FuelRangeMiles float64 `json:"fuel_range_miles,omitempty"`
}

type Medical struct {
	RequiresAssistance bool     `json:"requires_assistance"`
	HasDisabilities    bool     `json:"has_disabilities"`
	Medications        []string `json:"medications,omitempty"`
}

type EvacuationPreference struct {
	PredefinedLocation     *Destination `json:"predefined_location,omitempty"`
	MaxTravelDistanceMiles float64      `json:"max_travel_distance_miles,omitempty"`
}

// HasMobilityNeeds reports whether either the mobility or the medical section
// flags a disability.
func (p TravelerProfile) HasMobilityNeeds() bool {
	return p.Mobility.HasDisabilities || p.Medical.HasDisabilities
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"Minor", SeverityMinor},
		{"moderate", SeverityModerate},
		{" SEVERE ", SeveritySevere},
		{"Extreme", SeverityExtreme},
		{"Unknown", SeverityUnknown},
		{"", SeverityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.in))
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	assert.Less(t, SeverityMinor, SeverityModerate)
	assert.Less(t, SeverityModerate, SeveritySevere)
	assert.Less(t, SeveritySevere, SeverityExtreme)
}

func TestTagSet(t *testing.T) {
	s := NewTagSet(TagHighWinds, TagFireRisk)

	assert.True(t, s.Has(TagFireRisk))
	assert.True(t, s.Has(TagHighWinds))
	assert.False(t, s.Has(TagEvacuationOrdered))
	assert.Equal(t, []Tag{TagFireRisk, TagHighWinds}, s.Tags())

	u := s.Union(NewTagSet(TagEvacuationOrdered))
	assert.Equal(t, []string{"FireRisk", "HighWinds", "EvacuationOrdered"}, u.Strings())
	assert.True(t, TagSet(0).Empty())
}

func TestTagSet_JSON(t *testing.T) {
	s := NewTagSet(TagLowHumidity, TagExtremeHeat)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["LowHumidity","ExtremeHeat"]`, string(data))

	var back TagSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)

	require.Error(t, json.Unmarshal([]byte(`["Tsunami"]`), &back))
}

func TestRiskLevel_String(t *testing.T) {
	assert.Equal(t, "LOW", RiskLow.String())
	assert.Equal(t, "MODERATE", RiskModerate.String())
	assert.Equal(t, "HIGH", RiskHigh.String())
	assert.Equal(t, "EXTREME", RiskExtreme.String())
	assert.Less(t, RiskHigh, RiskExtreme)
}

func TestRiskLevel_JSON(t *testing.T) {
	data, err := json.Marshal(RiskHigh)
	require.NoError(t, err)
	assert.JSONEq(t, `"HIGH"`, string(data))

	var back RiskLevel
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, RiskHigh, back)

	require.Error(t, json.Unmarshal([]byte(`"SEVERE"`), &back))
}

func TestUrbanity_JSON(t *testing.T) {
	var u Urbanity
	require.NoError(t, json.Unmarshal([]byte(`"urban"`), &u))
	assert.Equal(t, UrbanityUrban, u)
	require.NoError(t, json.Unmarshal([]byte(`"somewhere"`), &u))
	assert.Equal(t, UrbanityUnknown, u)
}

func TestAlertRecord_UnmarshalSeverity(t *testing.T) {
	var rec AlertRecord
	require.NoError(t, json.Unmarshal([]byte(`{"event_type":"Red Flag Warning","severity":"Severe"}`), &rec))
	assert.Equal(t, SeveritySevere, rec.Severity)
	assert.Nil(t, rec.Instruction)
}

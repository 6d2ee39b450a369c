package normalize

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"

	"github.com/venturelens/venturelens/pkg/domain"
)

const sampleSave = `{
	"date": "2018-09-10T10:00:00",
	"started": "2018-09-01T10:00:00",
	"companyName": "momentum ai",
	"saveGameName": "sg_momentum ai",
	"id": "game-1",
	"balance": 10012.5,
	"xp": 1200,
	"researchPoints": 35,
	"cu": {"current": 850, "max": 1000},
	"office": {"workstations": [
		{"employee": {
			"name": "John",
			"employeeTypeName": "Developer",
			"salary": 5000,
			"mood": 80,
			"currentAssignment": "UiComponent",
			"workQueue": [{"component": "UiComponent"}, {"component": "BlueprintComponent"}]
		}},
		{"employee": {"name": "Mary", "employeeTypeName": "Designer", "salary": 4200, "mood": null}},
		{"desk": "empty"}
	]},
	"featureInstances": [
		{"featureName": "Landing Page", "activated": true,
			"quality": {"current": 20, "max": 70},
			"efficiency": {"current": 10, "max": 60}},
		{"featureName": "Login System",
			"quality": {"current": 55, "max": 60},
			"efficiency": {"current": 50, "max": 55}}
	],
	"progress": {"products": [
		{"name": "Fresh Social", "users": {"total": 5200, "satisfaction": 42}}
	]},
	"inventory": {"UiComponent": {"amount": 5}, "BackendComponent": 2},
	"newFeatureFlag": true
}`

func newTestNormalizer(t *testing.T) *Normalizer {
	return New(zaptest.NewLogger(t))
}

func TestNormalizeKnownFields(t *testing.T) {
	snap, err := newTestNormalizer(t).Normalize([]byte(sampleSave), time.Now())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.SnapshotID)
	assert.Equal(t, 9, snap.GameDay)
	assert.Equal(t, "momentum ai", snap.Known.Identity.CompanyName)
	assert.Equal(t, 10012.5, snap.Known.Finances.Balance)

	require.Len(t, snap.Known.Workforce.Employees, 2, "empty workstation must not produce an employee")
	john := snap.Known.Workforce.Employees[0]
	assert.Equal(t, "Developer", john.Role)
	assert.Equal(t, 5000.0, john.Salary)
	assert.Equal(t, 2, john.QueueLength)
	assert.False(t, john.Idle())

	mary := snap.Known.Workforce.Employees[1]
	assert.Equal(t, 1, mary.Index)
	assert.True(t, mary.Idle())

	require.Len(t, snap.Known.Features, 2)
	assert.Equal(t, "Landing Page", snap.Known.Features[0].Name)
	assert.Equal(t, 50.0, snap.Known.Features[0].Quality.Gap())

	require.Len(t, snap.Known.Products, 1)
	assert.Equal(t, 42.0, *snap.Known.Products[0].Satisfaction)

	assert.Equal(t, 5.0, snap.Known.Amount("UiComponent"))
	assert.Equal(t, 2.0, snap.Known.Amount("BackendComponent"))

	require.NotNil(t, snap.Known.Research.CUCurrent)
	assert.Equal(t, 850.0, *snap.Known.Research.CUCurrent)
}

func TestNormalizeUnknownFieldPreservation(t *testing.T) {
	snap, err := newTestNormalizer(t).Normalize([]byte(sampleSave), time.Now())
	require.NoError(t, err)

	var flag *domain.UnknownField
	for i := range snap.Unknown {
		if snap.Unknown[i].Path == "newFeatureFlag" {
			flag = &snap.Unknown[i]
		}
	}
	require.NotNil(t, flag, "never-before-seen root key must be preserved")
	assert.Equal(t, "true", string(flag.Raw))

	// The non-employee workstation leaf is unrecognized and kept too.
	paths := unknownPaths(snap)
	assert.Contains(t, paths, "office.workstations[2].desk")
}

func TestNormalizeNullVersusAbsent(t *testing.T) {
	snap, err := newTestNormalizer(t).Normalize([]byte(sampleSave), time.Now())
	require.NoError(t, err)

	// Mary's mood is explicitly null: recorded as a known null, field
	// left unset.
	assert.Nil(t, snap.Known.Workforce.Employees[1].Mood)
	found := false
	for _, kp := range snap.KnownPaths {
		if kp.Path == "office.workstations[1].employee.mood" {
			found = true
			assert.True(t, kp.Null)
		}
	}
	assert.True(t, found, "explicit null on a recognized path must be recorded")

	// John's idleMinutes is absent entirely: no record anywhere.
	for _, kp := range snap.KnownPaths {
		assert.NotEqual(t, "office.workstations[0].employee.idleMinutes", kp.Path)
	}
	assert.NotContains(t, unknownPaths(snap), "office.workstations[0].employee.idleMinutes")
}

func TestNormalizeLosslessRoundtrip(t *testing.T) {
	snap, err := newTestNormalizer(t).Normalize([]byte(sampleSave), time.Now())
	require.NoError(t, err)

	want := enumerateLeaves(gjson.Parse(sampleSave), "")
	got := make(map[string]int)
	for _, kp := range snap.KnownPaths {
		got[kp.Path]++
	}
	for _, u := range snap.Unknown {
		got[u.Path]++
	}

	assert.Equal(t, len(want), len(got))
	for _, p := range want {
		assert.Equal(t, 1, got[p], "leaf %q must land in exactly one of known or unknown", p)
	}
}

func TestNormalizeStringEncodedNumbers(t *testing.T) {
	doc := `{
		"date": "2018-09-10",
		"companyName": "momentum ai",
		"balance": "10012.50",
		"featureInstances": [{"featureName": "Landing Page", "quality": {"current": "20", "max": 70}}]
	}`
	snap, err := newTestNormalizer(t).Normalize([]byte(doc), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 10012.5, snap.Known.Finances.Balance)
	assert.Equal(t, 20.0, snap.Known.Features[0].Quality.Current)
}

func TestNormalizeCoercionFallback(t *testing.T) {
	// A recognized path whose value cannot be parsed is preserved raw
	// instead of being coerced to zero.
	doc := `{
		"date": "2018-09-10",
		"companyName": "momentum ai",
		"balance": 500,
		"featureInstances": [{"featureName": "Landing Page", "quality": {"current": "twenty", "max": 70}}]
	}`
	snap, err := newTestNormalizer(t).Normalize([]byte(doc), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.Known.Features[0].Quality.Current)
	assert.Contains(t, unknownPaths(snap), "featureInstances[0].quality.current")
}

func TestNormalizeSchemaValidation(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "missing balance",
			doc:   `{"date": "2018-09-10", "companyName": "x", "featureInstances": [{"featureName": "a"}]}`,
			field: "balance",
		},
		{
			name:  "mistyped date",
			doc:   `{"date": 42, "companyName": "x", "balance": 1, "featureInstances": [{"featureName": "a"}]}`,
			field: "date",
		},
		{
			name:  "no collections",
			doc:   `{"date": "2018-09-10", "companyName": "x", "balance": 1}`,
			field: "featureInstances",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestNormalizer(t).Normalize([]byte(tt.doc), time.Now())
			require.Error(t, err)
			var schemaErr *domain.SchemaValidationError
			require.ErrorAs(t, err, &schemaErr)
			found := false
			for _, issue := range schemaErr.Issues {
				if issue.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected an issue for field %q, got %v", tt.field, schemaErr.Issues)
		})
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	n := newTestNormalizer(t)
	_, err := n.Normalize([]byte("{broken"), time.Now())
	assert.Error(t, err)
	_, err = n.Normalize([]byte(`[1, 2, 3]`), time.Now())
	assert.Error(t, err)
}

func TestNormalizeDeterministicID(t *testing.T) {
	n := newTestNormalizer(t)
	a, err := n.Normalize([]byte(sampleSave), time.Now())
	require.NoError(t, err)
	b, err := n.Normalize([]byte(sampleSave), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, a.SnapshotID, b.SnapshotID, "content fingerprint must ignore ingestion time")
}

func unknownPaths(snap *domain.NormalizedSnapshot) []string {
	paths := make([]string, 0, len(snap.Unknown))
	for _, u := range snap.Unknown {
		paths = append(paths, u.Path)
	}
	return paths
}

// enumerateLeaves walks a document the same way a consumer would audit
// it: scalars and explicit nulls are leaves, empty containers count as a
// leaf at their own path.
func enumerateLeaves(res gjson.Result, prefix string) []string {
	var out []string
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}
	switch {
	case res.IsObject():
		empty := true
		res.ForEach(func(key, value gjson.Result) bool {
			empty = false
			out = append(out, enumerateLeaves(value, join(key.String()))...)
			return true
		})
		if empty && prefix != "" {
			out = append(out, prefix)
		}
	case res.IsArray():
		arr := res.Array()
		if len(arr) == 0 && prefix != "" {
			out = append(out, prefix)
			return out
		}
		for i, elem := range arr {
			out = append(out, enumerateLeaves(elem, fmt.Sprintf("%s[%d]", prefix, i))...)
		}
	default:
		out = append(out, prefix)
	}
	return out
}

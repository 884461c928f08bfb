package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Match(t *testing.T) {
	r := Record{
		"status":           "active",
		"plan":             "pro",
		"amount":           299.0,
		"paid_at":          "2026-10-01 00:00:00.000Z",
		"is_active":        true,
		"features_enabled": []any{"ai_assistant", "reports"},
		"custom_domain":    "",
	}

	cases := []struct {
		filter string
		want   bool
	}{
		{``, true},
		{`status = "Active"`, true},
		{`status != "active"`, false},
		{`status = "Active" && plan = "pro"`, true},
		{`status = "Active" && plan = "basic"`, false},
		{`plan = "basic" || plan = "pro"`, true},
		{`plan = "basic" || status = "active" && amount > 1000`, false},
		{`plan = "pro" || status = "gone" && amount > 1000`, true},
		{`(plan = "basic" || plan = "pro") && amount >= 299`, true},
		{`amount < 300`, true},
		{`amount > 299`, false},
		{`paid_at >= "2026-09-15 00:00:00.000Z"`, true},
		{`paid_at >= "2026-10-02T00:00:00Z"`, false},
		{`is_active = true`, true},
		{`features_enabled ~ "report"`, true},
		{`features_enabled = "ai_assistant"`, true},
		{`plan ~ "PR"`, true},
		{`plan !~ "ent"`, true},
		{`custom_domain = null`, true},
		{`missing = ""`, true},
		{`missing > 1`, false},
	}
	for _, tc := range cases {
		f, err := ParseFilter(tc.filter)
		require.NoError(t, err, tc.filter)
		assert.Equal(t, tc.want, f.Match(r), tc.filter)
	}
}

func TestParseFilter_RejectsUnsupportedOperator(t *testing.T) {
	_, err := ParseFilter(`tags ?= "x"`)
	assert.Error(t, err)
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, []SortField{{Field: "created", Desc: true}, {Field: "name"}}, ParseSort("-created, +name"))
	assert.Nil(t, ParseSort(""))
}

func TestSortRecords(t *testing.T) {
	records := []Record{
		{"id": "a", "visitors": 10.0},
		{"id": "b", "visitors": 250.0},
		{"id": "c"},
		{"id": "d", "visitors": 30.0},
	}
	sortRecords(records, ParseSort("-visitors"))

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

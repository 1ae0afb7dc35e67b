package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStage_Rank(t *testing.T) {
	for i, s := range Stages {
		assert.Equal(t, i, s.Rank(), s)
		assert.True(t, s.IsValid())
		assert.NotEqual(t, string(s), s.Label())
	}
	assert.Equal(t, -1, Stage("graduado").Rank())
	assert.False(t, Stage("").IsValid())
	assert.Equal(t, "graduado", Stage("graduado").Label())
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name      string
		tr        Transition
		wantRules []string
	}{
		{
			name: "forward one stage",
			tr:   Transition{Current: StageSubscribed, Next: StageDocumentsComplete, DocumentsCount: 3},
		},
		{
			name: "forward jump",
			tr:   Transition{Current: StageSubscribed, Next: StageUniversityProcess},
		},
		{
			name: "same stage",
			tr:   Transition{Current: StageActiveStudent, Next: StageActiveStudent},
		},
		{
			name: "one stage back",
			tr:   Transition{Current: StageEnrolled, Next: StageUniversityProcess},
		},
		{
			name:      "two stages back",
			tr:        Transition{Current: StageEnrolled, Next: StageRegistryValidated},
			wantRules: []string{RuleMaxRegression},
		},
		{
			name:      "back to the start",
			tr:        Transition{Current: StageProcessFinished, Next: StageSubscribed},
			wantRules: []string{RuleMaxRegression},
		},
		{
			name:      "documents complete with 2 documents",
			tr:        Transition{Current: StageSubscribed, Next: StageDocumentsComplete, DocumentsCount: 2},
			wantRules: []string{RuleMinDocuments},
		},
		{
			name: "documents gate only applies to its stage",
			tr:   Transition{Current: StageSubscribed, Next: StageRegistryValidated},
		},
		{
			name:      "enrolled with open requests",
			tr:        Transition{Current: StageUniversityProcess, Next: StageEnrolled, PendingRequestsCount: 1},
			wantRules: []string{RuleNoPendingRequests},
		},
		{
			name: "open requests do not block other stages",
			tr:   Transition{Current: StageEnrolled, Next: StageClassesStarted, PendingRequestsCount: 4},
		},
		{
			name:      "every rule reported",
			tr:        Transition{Current: StageProcessFinished, Next: StageDocumentsComplete},
			wantRules: []string{RuleMaxRegression, RuleMinDocuments},
		},
		{
			name:      "regressing to enrolled with open requests",
			tr:        Transition{Current: StagePaymentsUpToDate, Next: StageEnrolled, PendingRequestsCount: 2},
			wantRules: []string{RuleMaxRegression, RuleNoPendingRequests},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := CheckTransition(tt.tr)
			rules := make([]string, 0, len(failures))
			for _, f := range failures {
				rules = append(rules, f.Rule)
				assert.NotEmpty(t, f.Message)
			}
			assert.ElementsMatch(t, tt.wantRules, rules)
		})
	}
}

func TestCheckTransition_messages(t *testing.T) {
	failures := CheckTransition(Transition{Current: StageSubscribed, Next: StageDocumentsComplete, DocumentsCount: 1})
	if assert.Len(t, failures, 1) {
		assert.Equal(t, "documentsCount < 3: the student has 1 document(s)", failures[0].Message)
	}

	failures = CheckTransition(Transition{Current: StageRegistryValidated, Next: StageEnrolled, PendingRequestsCount: 2})
	if assert.Len(t, failures, 1) {
		assert.Equal(t, "pendingRequestsCount > 0: the student has 2 open request(s)", failures[0].Message)
	}

	failures = CheckTransition(Transition{Current: StageEnrolled, Next: StageSubscribed})
	if assert.Len(t, failures, 1) {
		assert.Equal(t, "cannot move back from matriculado to suscrito: at most one stage back is allowed", failures[0].Message)
	}
}

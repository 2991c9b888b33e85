package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/permcheck/model"
)

func transactionFacts() Facts {
	return Facts{
		Roles:      []map[string]string{{"findTransactions": "TELLER"}, {"transferFunds": "CUSTOMER"}, {"helper": ""}},
		Actions:    []map[string]string{{"findTransactions": "GET"}, {"transferFunds": "POST"}, {"helper": ""}},
		Resources:  []map[string]string{{"findTransactions": "transaction"}, {"transferFunds": "account"}},
		Conditions: []map[string]string{{"findTransactions": "user.branchId==t.branchId"}, {"transferFunds": ""}, {"helper": ""}},
	}
}

func TestAssemble_AllFactsPresent(t *testing.T) {
	perms, incomplete := Assemble("tx.controller.ts", transactionFacts(), CompletenessAll)

	require.Len(t, perms, 2)
	assert.Equal(t, model.ImplementedPermission{
		Role: "TELLER", Action: "GET", Resource: "transaction", Condition: "user.branchId==t.branchId",
		Method: "findTransactions", Controller: "tx.controller.ts",
	}, perms[0])
	assert.Equal(t, "CUSTOMER", perms[1].Role)
	assert.Equal(t, "", perms[1].Condition)
	assert.Equal(t, []string{"helper"}, incomplete)
}

func TestAssemble_MissingResourceDropsMethod(t *testing.T) {
	facts := Facts{
		Roles:      []map[string]string{{"getAccount": "ADMIN"}},
		Actions:    []map[string]string{{"getAccount": "GET"}},
		Conditions: []map[string]string{{"getAccount": ""}},
	}

	perms, incomplete := Assemble("c", facts, CompletenessAll)
	assert.Empty(t, perms)
	assert.Equal(t, []string{"getAccount"}, incomplete)
}

func TestAssemble_MissingEachFactDropsMethod(t *testing.T) {
	full := Facts{
		Roles:      []map[string]string{{"m": "ADMIN"}},
		Actions:    []map[string]string{{"m": "GET"}},
		Resources:  []map[string]string{{"m": "account"}},
		Conditions: []map[string]string{{"m": ""}},
	}
	perms, _ := Assemble("c", full, CompletenessAll)
	require.Len(t, perms, 1)

	for name, strip := range map[string]func(f *Facts){
		"role":      func(f *Facts) { f.Roles = []map[string]string{{"m": ""}} },
		"action":    func(f *Facts) { f.Actions = nil },
		"resource":  func(f *Facts) { f.Resources = nil },
		"condition": func(f *Facts) { f.Conditions = nil },
	} {
		t.Run(name, func(t *testing.T) {
			f := full
			strip(&f)
			perms, incomplete := Assemble("c", f, CompletenessAll)
			assert.Empty(t, perms)
			assert.Equal(t, []string{"m"}, incomplete)
		})
	}
}

func TestAssemble_AnyKeepsPartialRecords(t *testing.T) {
	perms, incomplete := Assemble("c", Facts{
		Roles:   []map[string]string{{"getAccount": "ADMIN"}},
		Actions: []map[string]string{{"getAccount": "GET"}, {"helper": ""}},
	}, CompletenessAny)

	assert.Equal(t, []model.ImplementedPermission{
		{Role: "ADMIN", Action: "GET", Method: "getAccount", Controller: "c"},
	}, perms)
	assert.Equal(t, []string{"helper"}, incomplete)
}

func TestAssemble_SplitsRoleLists(t *testing.T) {
	perms, _ := Assemble("c", Facts{
		Roles:      []map[string]string{{"update": "ADMIN, MANAGER"}},
		Actions:    []map[string]string{{"update": "PUT"}},
		Resources:  []map[string]string{{"update": "account"}},
		Conditions: []map[string]string{{"update": ""}},
	}, CompletenessAll)

	require.Len(t, perms, 2)
	assert.Equal(t, "ADMIN", perms[0].Role)
	assert.Equal(t, "MANAGER", perms[1].Role)
}

func TestJoin(t *testing.T) {
	mapping := []map[string]string{
		{"findTransactions": "getTellerTransactions"},
		{"transferFunds": "transferFunds"},
		{"health": ""},
		{"unknown": "notResolved"},
	}
	resolved := map[string]string{"getTellerTransactions": "transaction", "transferFunds": "account", "notResolved": ""}

	assert.Equal(t, []map[string]string{
		{"findTransactions": "transaction"},
		{"transferFunds": "account"},
	}, Join(mapping, resolved))
}

func TestParseCompleteness(t *testing.T) {
	c, err := ParseCompleteness("")
	require.NoError(t, err)
	assert.Equal(t, CompletenessAll, c)

	c, err = ParseCompleteness(" ANY ")
	require.NoError(t, err)
	assert.Equal(t, CompletenessAny, c)

	_, err = ParseCompleteness("some")
	assert.Error(t, err)
}
